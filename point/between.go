package point

import (
	"fmt"

	"github.com/alimasry/go-collab-blocks/orderable"
)

// Between returns a fresh point strictly between lower and upper. Zero
// points stand for PointMIN and PointMAX respectively.
//
// When lower is the caller's own latest point and appending is allowed,
// the result is lower with its nonce advanced by one. Otherwise the chains
// are walked from the root until a priority gap of at least two is found,
// and a new tag is placed in the middle of that gap.
//
// The minted nonce is nonce+1, so a nonce of 2^32-1 is exhausted and
// fails with ErrInvalidNonce.
func Between(replicaID, nonce uint32, lower, upper Point, isNotAppendable bool) (Point, error) {
	if nonce == orderable.Uint32MAX {
		return Point{}, fmt.Errorf("mint point after nonce %d: %w", nonce, ErrInvalidNonce)
	}
	if lower.IsZero() {
		lower = PointMIN
	}
	if upper.IsZero() {
		upper = PointMAX
	}
	if !isNotAppendable && lower.ReplicaID() == replicaID && lower.Nonce() == nonce {
		if p, err := lower.Offset(1); err == nil {
			return p, nil
		}
	}

	var tags []Tag
	i := 0
	tagL, tagU := lower.tags[0], upper.tags[0]
	for int64(tagU.Priority)-int64(tagL.Priority) < 2 {
		if tagL.ReplicaID == tagU.ReplicaID {
			tags = append(tags, tagL)
		} else {
			// max nonce marks the available end of the lower base
			tags = append(tags, Tag{Priority: tagL.Priority, ReplicaID: tagL.ReplicaID, Nonce: orderable.Uint32MAX})
		}
		i++
		tagL, tagU = TagMIN, TagMAX
		if i < len(lower.tags) {
			tagL = lower.tags[i]
		}
		if i < len(upper.tags) {
			tagU = upper.tags[i]
		}
	}
	tags = append(tags, Tag{
		Priority:  midBetween(tagL.Priority, tagU.Priority),
		ReplicaID: replicaID,
		Nonce:     nonce + 1,
	})
	return Point{tags: tags}, nil
}

func midBetween(a, b uint32) uint32 {
	return uint32((int64(b)-int64(a))/2 + int64(a))
}
