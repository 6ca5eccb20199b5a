package text

import "github.com/alimasry/go-collab-blocks/orderable"

// delAt removes the visible characters in rng and returns the spans that
// were removed, in text order.
func (n *TextNode) delAt(rng orderable.ClosedRange, minIndex int) (Spans, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()
	currRange := orderable.NewClosedRange(currMinIndex, curr.Length())

	switch currRange.Compare(rng) {
	case orderable.Less:
		return n.delAtRight(rng, nextMinIndex)
	case orderable.Greater:
		return n.delAtLeft(rng, minIndex)
	case orderable.Prependable:
		spans, err := n.delAtRight(rng, nextMinIndex)
		if err != nil {
			return nil, err
		}
		n.mergeRight()
		return spans, nil
	case orderable.Appendable:
		spans, err := n.delAtLeft(rng, minIndex)
		if err != nil {
			return nil, err
		}
		n.mergeLeft()
		return spans, nil
	case orderable.RightOverlap:
		rightSpans, err := n.delAtRight(rng, nextMinIndex)
		if err != nil {
			return nil, err
		}
		overlapped, err := rng.Intersection(currRange)
		if err != nil {
			return nil, err
		}
		currSpans, err := n.delAt(overlapped, minIndex)
		if err != nil {
			return nil, err
		}
		return append(currSpans, rightSpans...), nil
	case orderable.LeftOverlap:
		overlapped, err := rng.Intersection(currRange)
		if err != nil {
			return nil, err
		}
		currSpans, err := n.delAt(overlapped, minIndex)
		if err != nil {
			return nil, err
		}
		leftSpans, err := n.delAtLeft(rng, minIndex)
		if err != nil {
			return nil, err
		}
		return append(leftSpans, currSpans...), nil
	case orderable.Equal:
		n.deleteSelf()
		return Spans{curr}, nil
	case orderable.IncludingLeft:
		left, right, err := curr.SplitAt(rng.Length)
		if err != nil {
			return nil, err
		}
		n.setSpan(right)
		return Spans{left}, nil
	case orderable.IncludingRight:
		left, right, err := curr.SplitAt(rng.Lower - currRange.Lower)
		if err != nil {
			return nil, err
		}
		n.setSpan(left)
		return Spans{right}, nil
	case orderable.IncludingMiddle:
		rest, right, err := curr.SplitAt(rng.Upper() + 1 - currRange.Lower)
		if err != nil {
			return nil, err
		}
		left, removed, err := rest.SplitAt(rng.Lower - currRange.Lower)
		if err != nil {
			return nil, err
		}
		n.setSpan(left)
		n.insertSuccessor(right)
		return Spans{removed}, nil
	case orderable.IncludedLeft:
		rightSpans, err := n.delAtRight(rng, nextMinIndex)
		if err != nil {
			return nil, err
		}
		n.deleteSelf()
		return append(Spans{curr}, rightSpans...), nil
	case orderable.IncludedRight:
		leftSpans, err := n.delAtLeft(rng, minIndex)
		if err != nil {
			return nil, err
		}
		n.deleteSelf()
		return append(leftSpans, curr), nil
	case orderable.IncludedMiddle:
		rightSpans, err := n.delAtRight(rng, nextMinIndex)
		if err != nil {
			return nil, err
		}
		leftSpans, err := n.delAtLeft(rng, minIndex)
		if err != nil {
			return nil, err
		}
		n.deleteSelf()
		return append(append(leftSpans, curr), rightSpans...), nil
	default:
		return Spans{}, nil
	}
}

func (n *TextNode) delAtLeft(rng orderable.ClosedRange, minIndex int) (Spans, error) {
	if n.left == nil {
		return Spans{}, nil
	}
	spans, err := n.left.delAt(rng, minIndex)
	n.setLeft(n.left.balance())
	return spans, err
}

func (n *TextNode) delAtRight(rng orderable.ClosedRange, minIndex int) (Spans, error) {
	if n.right == nil {
		return Spans{}, nil
	}
	spans, err := n.right.delAt(rng, minIndex)
	n.setRight(n.right.balance())
	return spans, err
}
