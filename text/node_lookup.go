package text

import (
	"github.com/alimasry/go-collab-blocks/orderable"
	"github.com/alimasry/go-collab-blocks/point"
)

// NoOffset marks a missing neighbour in AdjacentOffsets.
const NoOffset = -1

// pointAt returns the point of the character at index, or the zero point
// when index is past the end.
func (n *TextNode) pointAt(index int) point.Point {
	currMinIndex := n.leftLength()
	if index < currMinIndex {
		if n.left == nil {
			return point.Point{}
		}
		return n.left.pointAt(index)
	}
	curr := n.span
	currMaxIndex := currMinIndex + curr.Length() - 1
	if index <= currMaxIndex {
		return curr.NthPoint(index - currMinIndex)
	}
	if n.right == nil {
		return point.Point{}
	}
	return n.right.pointAt(index - currMaxIndex - 1)
}

func offsetOrZero(p point.Point, offset int) point.Point {
	q, err := p.Offset(int64(offset))
	if err != nil {
		return point.Point{}
	}
	return q
}

// adjacentPoints returns the points of the characters just before and
// just after p, whether or not p itself is present.
func (n *TextNode) adjacentPoints(p point.Point) (lower, upper point.Point) {
	span := n.span
	switch span.LowerPoint().Compare(p) {
	case orderable.Equal:
		if pred := n.predecessorSpan(); !pred.IsZero() {
			lower = pred.UpperPoint()
		}
		if span.Length() > 1 {
			upper = span.NthPoint(1)
		} else if succ := n.successorSpan(); !succ.IsZero() {
			upper = succ.LowerPoint()
		}
		return lower, upper
	case orderable.Greater:
		if n.left == nil {
			return point.Point{}, span.LowerPoint()
		}
		lower, upper = n.left.adjacentPoints(p)
		if upper.IsZero() {
			upper = span.LowerPoint()
		}
		return lower, upper
	}

	switch span.UpperPoint().Compare(p) {
	case orderable.Equal:
		lower = span.NthPoint(span.Length() - 2)
		if succ := n.successorSpan(); !succ.IsZero() {
			upper = succ.LowerPoint()
		}
		return lower, upper
	case orderable.Less:
		if n.right == nil {
			return span.UpperPoint(), point.Point{}
		}
		lower, upper = n.right.adjacentPoints(p)
		if lower.IsZero() {
			lower = span.UpperPoint()
		}
		return lower, upper
	default:
		dist, _ := p.Distance(span.LowerPoint())
		if p.CompareBase(span.LowerPoint()) == orderable.Tagging {
			lower = offsetOrZero(span.LowerPoint(), dist)
		} else {
			lower = offsetOrZero(span.LowerPoint(), dist-1)
		}
		return lower, offsetOrZero(span.LowerPoint(), dist+1)
	}
}

// adjacentOffsets is adjacentPoints in visible indexes.
func (n *TextNode) adjacentOffsets(p point.Point) (lower, upper int) {
	span := n.span
	minIndex := n.leftLength()
	switch span.LowerPoint().Compare(p) {
	case orderable.Equal:
		lower, upper = NoOffset, NoOffset
		if minIndex > 0 {
			lower = minIndex - 1
		}
		if n.right != nil || span.Length() > 1 {
			upper = minIndex + 1
		}
		return lower, upper
	case orderable.Greater:
		if n.left == nil {
			return NoOffset, 0
		}
		lower, upper = n.left.adjacentOffsets(p)
		if upper == NoOffset {
			upper = minIndex
		}
		return lower, upper
	}

	switch span.UpperPoint().Compare(p) {
	case orderable.Equal:
		lastIndex := minIndex + span.Length() - 1
		upper = NoOffset
		if n.right != nil {
			upper = lastIndex + 1
		}
		return lastIndex - 1, upper
	case orderable.Less:
		nextMinIndex := minIndex + span.Length()
		if n.right == nil {
			return nextMinIndex - 1, NoOffset
		}
		lower, upper = n.right.adjacentOffsets(p)
		if lower == NoOffset {
			lower = nextMinIndex - 1
		} else {
			lower += nextMinIndex
		}
		if upper != NoOffset {
			upper += nextMinIndex
		}
		return lower, upper
	default:
		dist, _ := p.Distance(span.LowerPoint())
		index := minIndex + dist
		return index - 1, index + 1
	}
}
