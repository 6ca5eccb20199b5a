package text

import (
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/orderable"
)

// fmtAt applies delta to the visible characters in rng and returns the
// resulting formatting as spans that replicas can merge.
func (n *TextNode) fmtAt(rng orderable.ClosedRange, delta PropsDelta, stamp contribution.Stamp, minIndex int) ([]FMTSpan, error) {
	curr := n.span
	currMinIndex := minIndex + n.leftLength()
	nextMinIndex := currMinIndex + curr.Length()
	currRange := orderable.NewClosedRange(currMinIndex, curr.Length())

	apply := func(subIndex, length int) (FMTSpan, error) {
		attributes := n.span.Content().FmtAt(subIndex, length, delta, stamp)
		return NewSpan(n.span.NthPoint(subIndex), NewFMTContent(length, attributes))
	}
	single := func(subIndex, length int) ([]FMTSpan, error) {
		span, err := apply(subIndex, length)
		if err != nil {
			return nil, err
		}
		return []FMTSpan{span}, nil
	}

	switch currRange.Compare(rng) {
	case orderable.Less, orderable.Prependable:
		return n.fmtAtRight(rng, delta, stamp, nextMinIndex)
	case orderable.Greater, orderable.Appendable:
		return n.fmtAtLeft(rng, delta, stamp, minIndex)
	case orderable.IncludingLeft, orderable.IncludingRight, orderable.IncludingMiddle, orderable.Equal:
		return single(rng.Lower-currRange.Lower, rng.Length)
	case orderable.RightOverlap:
		rightSpans, err := n.fmtAtRight(rng, delta, stamp, nextMinIndex)
		if err != nil {
			return nil, err
		}
		subIndex := rng.Lower - currRange.Lower
		spans, err := single(subIndex, currRange.Length-subIndex)
		if err != nil {
			return nil, err
		}
		return append(spans, rightSpans...), nil
	case orderable.LeftOverlap:
		leftSpans, err := n.fmtAtLeft(rng, delta, stamp, minIndex)
		if err != nil {
			return nil, err
		}
		spans, err := single(0, rng.Upper()-currRange.Lower+1)
		if err != nil {
			return nil, err
		}
		return append(leftSpans, spans...), nil
	case orderable.IncludedLeft:
		rightSpans, err := n.fmtAtRight(rng, delta, stamp, nextMinIndex)
		if err != nil {
			return nil, err
		}
		spans, err := single(0, currRange.Length)
		if err != nil {
			return nil, err
		}
		return append(spans, rightSpans...), nil
	case orderable.IncludedRight:
		leftSpans, err := n.fmtAtLeft(rng, delta, stamp, minIndex)
		if err != nil {
			return nil, err
		}
		spans, err := single(0, currRange.Length)
		if err != nil {
			return nil, err
		}
		return append(leftSpans, spans...), nil
	case orderable.IncludedMiddle:
		leftSpans, err := n.fmtAtLeft(rng, delta, stamp, minIndex)
		if err != nil {
			return nil, err
		}
		rightSpans, err := n.fmtAtRight(rng, delta, stamp, nextMinIndex)
		if err != nil {
			return nil, err
		}
		spans, err := single(0, currRange.Length)
		if err != nil {
			return nil, err
		}
		return append(append(leftSpans, spans...), rightSpans...), nil
	default:
		return []FMTSpan{}, nil
	}
}

func (n *TextNode) fmtAtLeft(rng orderable.ClosedRange, delta PropsDelta, stamp contribution.Stamp, minIndex int) ([]FMTSpan, error) {
	if n.left == nil {
		return []FMTSpan{}, nil
	}
	return n.left.fmtAt(rng, delta, stamp, minIndex)
}

func (n *TextNode) fmtAtRight(rng orderable.ClosedRange, delta PropsDelta, stamp contribution.Stamp, minIndex int) ([]FMTSpan, error) {
	if n.right == nil {
		return []FMTSpan{}, nil
	}
	return n.right.fmtAt(rng, delta, stamp, minIndex)
}
