// Package point implements the fractional-index identities assigned to
// every inserted character and block.
package point

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/orderable"
)

var (
	ErrInvalidNonce  = errors.New("invalid-nonce")
	ErrInvalidOffset = errors.New("invalid-offset")
)

// Tag is one link of a Point chain.
type Tag struct {
	Priority  uint32
	ReplicaID uint32
	Nonce     uint32
}

func NewTag(priority, replicaID, nonce uint32) Tag {
	return Tag{Priority: priority, ReplicaID: replicaID, Nonce: nonce}
}

// WithNonce returns a copy of t carrying nonce.
func (t Tag) WithNonce(nonce int64) (Tag, error) {
	n, err := orderable.Validated(nonce)
	if err != nil {
		return Tag{}, ErrInvalidNonce
	}
	return Tag{Priority: t.Priority, ReplicaID: t.ReplicaID, Nonce: n}, nil
}

// Offset shifts the nonce by offset, which may be negative.
func (t Tag) Offset(offset int64) (Tag, error) {
	n, err := orderable.Validated(int64(t.Nonce) + offset)
	if err != nil {
		return Tag{}, ErrInvalidOffset
	}
	return Tag{Priority: t.Priority, ReplicaID: t.ReplicaID, Nonce: n}, nil
}

// CompareBase orders by priority, then replicaID.
func (t Tag) CompareBase(other Tag) orderable.Order {
	if result := orderable.Compare(t.Priority, other.Priority); result != orderable.Equal {
		return result
	}
	return orderable.Compare(t.ReplicaID, other.ReplicaID)
}

// Compare orders by CompareBase, then nonce.
func (t Tag) Compare(other Tag) orderable.Order {
	if result := t.CompareBase(other); result != orderable.Equal {
		return result
	}
	return orderable.Compare(t.Nonce, other.Nonce)
}

func (t Tag) Encode() [3]uint32 {
	return [3]uint32{t.Priority, t.ReplicaID, t.Nonce}
}

func DecodeTag(data [3]uint32) Tag {
	return Tag{Priority: data[0], ReplicaID: data[1], Nonce: data[2]}
}

func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Encode())
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	var data [3]uint32
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	*t = DecodeTag(data)
	return nil
}

func (t Tag) String() string {
	return fmt.Sprintf("[%d,%d,%d]", t.Priority, t.ReplicaID, t.Nonce)
}
