package text

import (
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/point"
)

// SpanMinter allocates points for new content between two neighbouring
// points. A zero point means there is no neighbour on that side.
type SpanMinter interface {
	SpanFor(replicaID uint32, content *INSContent, lower, upper point.Point) (INSSpan, error)
}

// insAt inserts content so that it starts at the visible index, minting
// its span between the characters around that index.
func (n *TextNode) insAt(index int, content *INSContent, contributor *contribution.Contributor, minter SpanMinter) (INSSpan, error) {
	curr := n.span
	currMinIndex := n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()

	var lower, upper point.Point
	switch {
	case index < currMinIndex:
		return n.insAtLeft(index, content, contributor, minter)
	case index == currMinIndex:
		if pred := n.predecessorSpan(); !pred.IsZero() {
			lower = pred.UpperPoint()
		}
		upper = curr.LowerPoint()
	case index < nextMinIndex:
		lower = curr.NthPoint(index - currMinIndex - 1)
		upper = curr.NthPoint(index - currMinIndex)
	case index == nextMinIndex:
		lower = curr.UpperPoint()
		if succ := n.successorSpan(); !succ.IsZero() {
			upper = succ.LowerPoint()
		}
	default:
		return n.insAtRight(index-nextMinIndex, content, contributor, minter)
	}

	span, err := minter.SpanFor(contributor.ReplicaID(), content, lower, upper)
	if err != nil {
		return INSSpan{}, err
	}
	if _, err := n.ins(span, 0); err != nil {
		return INSSpan{}, err
	}
	return span, nil
}

func (n *TextNode) insAtLeft(index int, content *INSContent, contributor *contribution.Contributor, minter SpanMinter) (INSSpan, error) {
	if n.left == nil {
		return n.insAt(0, content, contributor, minter)
	}
	span, err := n.left.insAt(index, content, contributor, minter)
	n.setLeft(n.left.balance())
	return span, err
}

func (n *TextNode) insAtRight(index int, content *INSContent, contributor *contribution.Contributor, minter SpanMinter) (INSSpan, error) {
	if n.right == nil {
		return n.insAt(n.leftLength()+n.span.Length(), content, contributor, minter)
	}
	span, err := n.right.insAt(index, content, contributor, minter)
	n.setRight(n.right.balance())
	return span, err
}
