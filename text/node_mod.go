package text

import "github.com/alimasry/go-collab-blocks/orderable"

// mod overwrites the characters span covers with its text.
func (n *TextNode) mod(span MODSpan, minIndex int) ([]MODDelta, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()
	spanNonce := int(span.LowerPoint().Nonce())
	currNonce := int(curr.LowerPoint().Nonce())

	apply := func(subIndex int, content *MODContent) (MODDelta, error) {
		if err := n.span.Content().Mod(subIndex, content); err != nil {
			return MODDelta{}, err
		}
		return MODDelta{Index: currMinIndex + subIndex, Text: content.Text()}, nil
	}
	single := func(subIndex int, content *MODContent) ([]MODDelta, error) {
		delta, err := apply(subIndex, content)
		if err != nil {
			return nil, err
		}
		return []MODDelta{delta}, nil
	}

	switch curr.Compare(span) {
	case orderable.Less, orderable.Prependable:
		return n.modRight(span, nextMinIndex)
	case orderable.Greater, orderable.Appendable:
		return n.modLeft(span, minIndex)
	case orderable.IncludingLeft, orderable.IncludingRight, orderable.IncludingMiddle, orderable.Equal:
		return single(spanNonce-currNonce, span.Content())
	case orderable.RightOverlap:
		rightDeltas, err := n.modRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		content, _ := span.Content().Slice(0, int(curr.UpperPoint().Nonce())-spanNonce+1)
		deltas, err := single(spanNonce-currNonce, content)
		if err != nil {
			return nil, err
		}
		return append(deltas, rightDeltas...), nil
	case orderable.LeftOverlap:
		leftDeltas, err := n.modLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		content, _ := span.Content().Slice(currNonce-spanNonce, span.Length())
		deltas, err := single(0, content)
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, deltas...), nil
	case orderable.IncludedLeft:
		rightDeltas, err := n.modRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		content, _ := span.Content().Slice(0, curr.Length())
		deltas, err := single(0, content)
		if err != nil {
			return nil, err
		}
		return append(deltas, rightDeltas...), nil
	case orderable.IncludedRight:
		leftDeltas, err := n.modLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		content, _ := span.Content().Slice(span.Length()-curr.Length(), span.Length())
		deltas, err := single(0, content)
		if err != nil {
			return nil, err
		}
		return append(leftDeltas, deltas...), nil
	case orderable.IncludedMiddle:
		leftDeltas, err := n.modLeft(span, minIndex)
		if err != nil {
			return nil, err
		}
		rightDeltas, err := n.modRight(span, nextMinIndex)
		if err != nil {
			return nil, err
		}
		start := currNonce - spanNonce
		content, _ := span.Content().Slice(start, start+curr.Length())
		deltas, err := single(0, content)
		if err != nil {
			return nil, err
		}
		return append(append(leftDeltas, deltas...), rightDeltas...), nil
	default:
		return []MODDelta{}, nil
	}
}

func (n *TextNode) modLeft(span MODSpan, minIndex int) ([]MODDelta, error) {
	if n.left == nil {
		return []MODDelta{}, nil
	}
	return n.left.mod(span, minIndex)
}

func (n *TextNode) modRight(span MODSpan, minIndex int) ([]MODDelta, error) {
	if n.right == nil {
		return []MODDelta{}, nil
	}
	return n.right.mod(span, minIndex)
}
