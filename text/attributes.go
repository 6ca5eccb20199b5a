package text

import (
	"encoding/json"

	"github.com/alimasry/go-collab-blocks/contribution"
)

// Attributes is the run-length formatting timeline of a content run.
type Attributes []Leaf

func (a Attributes) Length() int {
	total := 0
	for _, leaf := range a {
		total += leaf.Length
	}
	return total
}

func (a Attributes) Clone() Attributes {
	leaves := make(Attributes, len(a))
	for i, leaf := range a {
		leaves[i] = leaf.Clone(false)
	}
	return leaves
}

// Concat returns a followed by other, merging the boundary leaves when
// they only differ in length.
func (a Attributes) Concat(other Attributes, withoutStamp bool) Attributes {
	leaves := make(Attributes, 0, len(a)+len(other))
	for _, leaf := range a {
		leaves = append(leaves, leaf.Clone(withoutStamp))
	}
	for i, leaf := range other {
		leaf = leaf.Clone(withoutStamp)
		if i == 0 && len(leaves) > 0 && leaves[len(leaves)-1].EqualsExceptForLength(leaf) {
			leaves[len(leaves)-1].Length += leaf.Length
			continue
		}
		leaves = append(leaves, leaf)
	}
	return leaves
}

// Slice returns the leaves covering [start, end).
func (a Attributes) Slice(start, end int) Attributes {
	if end-start < 1 || len(a) == 0 {
		return Attributes{}
	}
	leaves := a.Clone()
	nextIndex := leaves[0].Length
	for nextIndex <= start {
		leaves = leaves[1:]
		if len(leaves) == 0 {
			return Attributes{}
		}
		nextIndex += leaves[0].Length
	}
	leaves[0].Length = nextIndex - start

	index := 0
	for nextIndex < end && index+1 < len(leaves) {
		index++
		nextIndex += leaves[index].Length
	}
	if nextIndex > end {
		leaves[index].Length -= nextIndex - end
	}
	return leaves[:index+1]
}

// Apply writes delta over every leaf with stamp and merges neighbours
// that became equal.
func (a Attributes) Apply(delta PropsDelta, stamp contribution.Stamp) Attributes {
	leaves := make(Attributes, 0, len(a))
	for _, leaf := range a {
		leaf = leaf.Apply(delta, stamp)
		if n := len(leaves); n > 0 && leaves[n-1].EqualsExceptForLength(leaf) {
			leaves[n-1].Length += leaf.Length
			continue
		}
		leaves = append(leaves, leaf)
	}
	return leaves
}

// Merge walks a and other in lock-step and keeps, per segment, the side
// with the newer stamp. other must be as long as a.
func (a Attributes) Merge(other Attributes) Attributes {
	var merged Attributes
	idx, otherIdx := 0, 0
	if len(a) == 0 || len(other) == 0 {
		return a.Clone()
	}
	leaf, otherLeaf := a[idx], other[otherIdx]
	length, otherLength := leaf.Length, otherLeaf.Length

	for length > 0 {
		chosen := leaf
		if contribution.CheckIfNewerStamp(leaf.Stamp, otherLeaf.Stamp) {
			chosen = otherLeaf
		}
		segment := chosen.Clone(false)
		segment.Length = min(length, otherLength)

		if n := len(merged); n > 0 && merged[n-1].EqualsExceptForLength(segment) {
			merged[n-1].Length += segment.Length
		} else {
			merged = append(merged, segment)
		}

		length -= segment.Length
		otherLength -= segment.Length
		if length < 1 {
			idx++
			if idx >= len(a) {
				break
			}
			leaf = a[idx]
			length = leaf.Length
		}
		if otherLength < 1 {
			otherIdx++
			if otherIdx >= len(other) {
				break
			}
			otherLeaf = other[otherIdx]
			otherLength = otherLeaf.Length
		}
	}
	return merged
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Leaf(a))
}
