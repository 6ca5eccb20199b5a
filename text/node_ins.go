package text

import (
	"errors"

	"github.com/alimasry/go-collab-blocks/orderable"
)

var ErrDuplicateInsertion = errors.New("no-dup-insertion")

// ins places span at its point order and reports where its pieces landed
// in the visible text. minIndex is the text index of the subtree's start.
func (n *TextNode) ins(span INSSpan, minIndex int) ([]INSDelta, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()

	switch curr.Compare(span) {
	case orderable.Less:
		return n.insIntoRight(span, nextMinIndex)
	case orderable.Greater:
		return n.insIntoLeft(span, minIndex)
	case orderable.Prependable:
		deltas, err := n.insIntoRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		n.mergeRight()
		return deltas, nil
	case orderable.Appendable:
		deltas, err := n.insIntoLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		n.mergeLeft()
		return deltas, nil
	case orderable.Splitted:
		left, right, err := curr.SplitWith(span)
		if err != nil {
			return nil, err
		}
		n.insertPredecessor(left)
		n.setSpan(span)
		n.insertSuccessor(right)
		return []INSDelta{{Index: currMinIndex + left.Length(), Content: span.Content()}}, nil
	case orderable.Splitting:
		left, right, err := span.SplitWith(curr)
		if err != nil {
			return nil, err
		}
		rightDeltas, err := n.insIntoRight(right, nextMinIndex)
		if err != nil {
			return nil, err
		}
		leftDeltas, err := n.insIntoLeft(left, minIndex)
		if err != nil {
			return nil, err
		}
		return append(rightDeltas, leftDeltas...), nil
	default:
		return nil, ErrDuplicateInsertion
	}
}

func (n *TextNode) insIntoLeft(span INSSpan, minIndex int) ([]INSDelta, error) {
	if n.left == nil {
		n.setLeft(NewTextNode(span, nil, nil))
		return []INSDelta{{Index: minIndex, Content: span.Content()}}, nil
	}
	deltas, err := n.left.ins(span, minIndex)
	n.setLeft(n.left.balance())
	return deltas, err
}

func (n *TextNode) insIntoRight(span INSSpan, minIndex int) ([]INSDelta, error) {
	if n.right == nil {
		n.setRight(NewTextNode(span, nil, nil))
		return []INSDelta{{Index: minIndex, Content: span.Content()}}, nil
	}
	deltas, err := n.right.ins(span, minIndex)
	n.setRight(n.right.balance())
	return deltas, err
}
