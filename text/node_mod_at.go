package text

import "github.com/alimasry/go-collab-blocks/orderable"

// modAt overwrites the visible characters in rng with content, which must
// be exactly as long as rng.
func (n *TextNode) modAt(rng orderable.ClosedRange, content *MODContent, minIndex int) ([]MODSpan, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()
	currRange := orderable.NewClosedRange(currMinIndex, curr.Length())

	apply := func(subIndex int, part *MODContent) ([]MODSpan, error) {
		if err := n.span.Content().Mod(subIndex, part); err != nil {
			return nil, err
		}
		span, err := NewSpan(n.span.NthPoint(subIndex), part)
		if err != nil {
			return nil, err
		}
		return []MODSpan{span}, nil
	}

	switch currRange.Compare(rng) {
	case orderable.Less, orderable.Prependable:
		return n.modAtRight(rng, content, nextMinIndex)
	case orderable.Greater, orderable.Appendable:
		return n.modAtLeft(rng, content, minIndex)
	case orderable.IncludingLeft, orderable.IncludingRight, orderable.IncludingMiddle, orderable.Equal:
		return apply(rng.Lower-currRange.Lower, content)
	case orderable.RightOverlap:
		rightSpans, err := n.modAtRight(rng, content, nextMinIndex)
		if err != nil {
			return nil, err
		}
		part, _ := content.Slice(0, currRange.Upper()-rng.Lower+1)
		spans, err := apply(rng.Lower-currRange.Lower, part)
		if err != nil {
			return nil, err
		}
		return append(spans, rightSpans...), nil
	case orderable.LeftOverlap:
		leftSpans, err := n.modAtLeft(rng, content, minIndex)
		if err != nil {
			return nil, err
		}
		part, _ := content.Slice(currRange.Lower-rng.Lower, rng.Length)
		spans, err := apply(0, part)
		if err != nil {
			return nil, err
		}
		return append(leftSpans, spans...), nil
	case orderable.IncludedLeft:
		rightSpans, err := n.modAtRight(rng, content, nextMinIndex)
		if err != nil {
			return nil, err
		}
		part, _ := content.Slice(0, currRange.Length)
		spans, err := apply(0, part)
		if err != nil {
			return nil, err
		}
		return append(spans, rightSpans...), nil
	case orderable.IncludedRight:
		leftSpans, err := n.modAtLeft(rng, content, minIndex)
		if err != nil {
			return nil, err
		}
		part, _ := content.Slice(rng.Length-currRange.Length, rng.Length)
		spans, err := apply(0, part)
		if err != nil {
			return nil, err
		}
		return append(leftSpans, spans...), nil
	case orderable.IncludedMiddle:
		leftSpans, err := n.modAtLeft(rng, content, minIndex)
		if err != nil {
			return nil, err
		}
		rightSpans, err := n.modAtRight(rng, content, nextMinIndex)
		if err != nil {
			return nil, err
		}
		part, _ := content.Slice(currRange.Lower-rng.Lower, currRange.Upper()-rng.Lower+1)
		spans, err := apply(0, part)
		if err != nil {
			return nil, err
		}
		return append(append(leftSpans, spans...), rightSpans...), nil
	default:
		return []MODSpan{}, nil
	}
}

func (n *TextNode) modAtLeft(rng orderable.ClosedRange, content *MODContent, minIndex int) ([]MODSpan, error) {
	if n.left == nil {
		return []MODSpan{}, nil
	}
	return n.left.modAt(rng, content, minIndex)
}

func (n *TextNode) modAtRight(rng orderable.ClosedRange, content *MODContent, minIndex int) ([]MODSpan, error) {
	if n.right == nil {
		return []MODSpan{}, nil
	}
	return n.right.modAt(rng, content, minIndex)
}
