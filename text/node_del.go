package text

import "github.com/alimasry/go-collab-blocks/orderable"

// del removes every character whose point lies in span. Points that are
// already gone are skipped.
func (n *TextNode) del(span DELSpan, minIndex int) ([]DELDelta, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()

	switch curr.Compare(span) {
	case orderable.Less, orderable.Prependable:
		return n.delRight(span, nextMinIndex)
	case orderable.Greater, orderable.Appendable:
		return n.delLeft(span, minIndex)
	case orderable.IncludingLeft:
		rest, err := curr.GetAppendableSegmentTo(span)
		if err != nil {
			return nil, err
		}
		n.setSpan(rest)
		return []DELDelta{{Index: currMinIndex, Length: span.Length()}}, nil
	case orderable.IncludingRight:
		rest, err := curr.GetPrependableSegmentTo(span)
		if err != nil {
			return nil, err
		}
		n.setSpan(rest)
		return []DELDelta{{Index: currMinIndex + rest.Length(), Length: span.Length()}}, nil
	case orderable.IncludingMiddle:
		left, err := curr.GetPrependableSegmentTo(span)
		if err != nil {
			return nil, err
		}
		right, err := curr.GetAppendableSegmentTo(span)
		if err != nil {
			return nil, err
		}
		n.setSpan(left)
		n.insertSuccessor(right)
		return []DELDelta{{Index: currMinIndex + left.Length(), Length: span.Length()}}, nil
	case orderable.RightOverlap:
		rightDeltas, err := n.delRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		overlapped, err := span.Intersection(curr)
		if err != nil {
			return nil, err
		}
		currDeltas, err := n.del(overlapped, minIndex)
		if err != nil {
			return nil, err
		}
		return append(currDeltas, rightDeltas...), nil
	case orderable.LeftOverlap:
		overlapped, err := span.Intersection(curr)
		if err != nil {
			return nil, err
		}
		currDeltas, err := n.del(overlapped, minIndex)
		if err != nil {
			return nil, err
		}
		leftDeltas, err := n.delLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, currDeltas...), nil
	case orderable.Equal:
		n.deleteSelf()
		return []DELDelta{{Index: currMinIndex, Length: curr.Length()}}, nil
	case orderable.IncludedLeft:
		rightDeltas, err := n.delRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		currDeltas, err := n.del(curr.ToDELSpan(), minIndex)
		if err != nil {
			return nil, err
		}
		return append(currDeltas, rightDeltas...), nil
	case orderable.IncludedRight:
		leftDeltas, err := n.delLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		currDeltas, err := n.del(curr.ToDELSpan(), minIndex)
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, currDeltas...), nil
	case orderable.IncludedMiddle:
		rightDeltas, err := n.delRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		leftDeltas, err := n.delLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		currDeltas, err := n.del(curr.ToDELSpan(), minIndex)
		if err != nil {
			return nil, err
		}
		return append(append(leftDeltas, currDeltas...), rightDeltas...), nil
	case orderable.Splitting:
		left, right, err := span.SplitWith(curr)
		if err != nil {
			return nil, err
		}
		rightDeltas, err := n.del(right, minIndex)
		if err != nil {
			return nil, err
		}
		leftDeltas, err := n.del(left, minIndex)
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, rightDeltas...), nil
	default:
		// Splitted: the target range does not exist.
		return []DELDelta{}, nil
	}
}

func (n *TextNode) delLeft(span DELSpan, minIndex int) ([]DELDelta, error) {
	if n.left == nil {
		return []DELDelta{}, nil
	}
	deltas, err := n.left.del(span, minIndex)
	n.setLeft(n.left.balance())
	return deltas, err
}

func (n *TextNode) delRight(span DELSpan, minIndex int) ([]DELDelta, error) {
	if n.right == nil {
		return []DELDelta{}, nil
	}
	deltas, err := n.right.del(span, minIndex)
	n.setRight(n.right.balance())
	return deltas, err
}
