package text

import "github.com/alimasry/go-collab-blocks/orderable"

// fmt merges the formatting carried by span into the characters it
// covers. Formatting never changes the tree shape.
func (n *TextNode) fmt(span FMTSpan, minIndex int) ([]FMTDelta, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()
	spanNonce := int(span.LowerPoint().Nonce())
	currNonce := int(curr.LowerPoint().Nonce())

	apply := func(subIndex int, content *FMTContent) FMTDelta {
		return FMTDelta{Index: currMinIndex + subIndex, Attributes: n.span.Content().Fmt(subIndex, content)}
	}

	switch curr.Compare(span) {
	case orderable.Less, orderable.Prependable:
		return n.fmtRight(span, nextMinIndex)
	case orderable.Greater, orderable.Appendable:
		return n.fmtLeft(span, minIndex)
	case orderable.IncludingLeft, orderable.IncludingRight, orderable.IncludingMiddle, orderable.Equal:
		return []FMTDelta{apply(spanNonce-currNonce, span.Content())}, nil
	case orderable.RightOverlap:
		rightDeltas, err := n.fmtRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		content, err := span.Content().Slice(0, int(curr.UpperPoint().Nonce())-spanNonce+1)
		if err != nil {
			return nil, err
		}
		return append([]FMTDelta{apply(spanNonce-currNonce, content)}, rightDeltas...), nil
	case orderable.LeftOverlap:
		leftDeltas, err := n.fmtLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		content, err := span.Content().Slice(currNonce-spanNonce, span.Length())
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, apply(0, content)), nil
	case orderable.IncludedLeft:
		rightDeltas, err := n.fmtRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		content, err := span.Content().Slice(0, curr.Length())
		if err != nil {
			return nil, err
		}
		return append([]FMTDelta{apply(0, content)}, rightDeltas...), nil
	case orderable.IncludedRight:
		leftDeltas, err := n.fmtLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		content, err := span.Content().Slice(span.Length()-curr.Length(), span.Length())
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, apply(0, content)), nil
	case orderable.IncludedMiddle:
		leftDeltas, err := n.fmtLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		rightDeltas, err := n.fmtRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		start := currNonce - spanNonce
		content, err := span.Content().Slice(start, start+curr.Length())
		if err != nil {
			return nil, err
		}
		return append(append(leftDeltas, apply(0, content)), rightDeltas...), nil
	default:
		return []FMTDelta{}, nil
	}
}

func (n *TextNode) fmtLeft(span FMTSpan, minIndex int) ([]FMTDelta, error) {
	if n.left == nil {
		return []FMTDelta{}, nil
	}
	return n.left.fmt(span, minIndex)
}

func (n *TextNode) fmtRight(span FMTSpan, minIndex int) ([]FMTDelta, error) {
	if n.right == nil {
		return []FMTDelta{}, nil
	}
	return n.right.fmt(span, minIndex)
}
