// Package contribution holds what a replica attaches to its writes: LWW
// stamps, the clock that produces them, and the contributor identity that
// mints block points.
package contribution

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stamp orders concurrent writes: by Timestamp, then by ReplicaID.
type Stamp struct {
	ReplicaID uint32
	Timestamp int64
}

// CheckIfNewerStamp reports whether other strictly beats curr. A missing
// curr always loses and a missing other never wins.
func CheckIfNewerStamp(curr, other *Stamp) bool {
	if curr == nil {
		return true
	}
	if other == nil {
		return false
	}
	if curr.Timestamp == other.Timestamp {
		return curr.ReplicaID < other.ReplicaID
	}
	return curr.Timestamp < other.Timestamp
}

// CheckIfNewerOrEqualStamp is CheckIfNewerStamp where ties go to other.
func CheckIfNewerOrEqualStamp(curr, other *Stamp) bool {
	if curr == nil {
		return true
	}
	if other == nil {
		return false
	}
	if curr.Timestamp == other.Timestamp {
		return curr.ReplicaID <= other.ReplicaID
	}
	return curr.Timestamp <= other.Timestamp
}

func (s Stamp) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{int64(s.ReplicaID), s.Timestamp})
}

func (s *Stamp) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode stamp: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decode stamp: want 2 elements, got %d", len(raw))
	}
	var decoded Stamp
	if err := json.Unmarshal(raw[0], &decoded.ReplicaID); err != nil {
		return fmt.Errorf("decode stamp replicaID: %w", err)
	}
	if err := json.Unmarshal(raw[1], &decoded.Timestamp); err != nil {
		return fmt.Errorf("decode stamp timestamp: %w", err)
	}
	*s = decoded
	return nil
}

func (s Stamp) String() string {
	return fmt.Sprintf("[%d,%d]", s.ReplicaID, s.Timestamp)
}

// Clock returns the current time in milliseconds.
type Clock func() int64

// SystemClock reads the wall clock. Skew between replicas only changes
// which concurrent write wins, never whether replicas converge.
func SystemClock() int64 {
	return time.Now().UnixMilli()
}
