package text

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/orderable"
	"github.com/alimasry/go-collab-blocks/point"
)

var (
	ErrUnappendable  = errors.New("un-appendable")
	ErrUnprependable = errors.New("un-prependable")
)

// Ranged is anything occupying consecutive points from a lower point.
type Ranged interface {
	LowerPoint() point.Point
	Length() int
}

// Span is a content run whose i-th character is identified by the lower
// point offset by i.
type Span[C Content[C]] struct {
	lowerPoint point.Point
	content    C
}

type (
	INSSpan = Span[*INSContent]
	DELSpan = Span[*DELContent]
	FMTSpan = Span[*FMTContent]
	MODSpan = Span[*MODContent]
)

// NewSpan rejects empty content and ranges running past the nonce space.
func NewSpan[C Content[C]](lowerPoint point.Point, content C) (Span[C], error) {
	if content.Length() < 1 {
		return Span[C]{}, ErrEmptyContent
	}
	if lowerPoint.IsZero() {
		return Span[C]{}, point.ErrEmptyPoint
	}
	if _, err := lowerPoint.Offset(int64(content.Length() - 1)); err != nil {
		return Span[C]{}, err
	}
	return Span[C]{lowerPoint: lowerPoint, content: content}, nil
}

func MustSpan[C Content[C]](lowerPoint point.Point, content C) Span[C] {
	span, err := NewSpan(lowerPoint, content)
	if err != nil {
		panic(err)
	}
	return span
}

func (s Span[C]) LowerPoint() point.Point { return s.lowerPoint }

func (s Span[C]) Content() C { return s.content }

func (s Span[C]) Length() int { return s.content.Length() }

func (s Span[C]) ReplicaID() uint32 { return s.lowerPoint.ReplicaID() }

// IsZero reports whether s is the zero Span, which stands for no span.
func (s Span[C]) IsZero() bool { return s.lowerPoint.IsZero() }

func (s Span[C]) UpperPoint() point.Point {
	return s.NthPoint(s.Length() - 1)
}

// NthPoint panics when n lies outside the span.
func (s Span[C]) NthPoint(n int) point.Point {
	p, err := s.lowerPoint.Offset(int64(n))
	if err != nil {
		panic(fmt.Sprintf("span %v has no point %d: %v", s.lowerPoint, n, err))
	}
	return p
}

func (s Span[C]) Seqs() orderable.ClosedRange {
	return orderable.NewClosedRange(int(s.lowerPoint.Nonce()), s.Length())
}

func seqsOf(r Ranged) orderable.ClosedRange {
	return orderable.NewClosedRange(int(r.LowerPoint().Nonce()), r.Length())
}

// Compare orders s against other. Spans under different parents are Less
// or Greater; siblings compare by range; a span cut by a child of the
// other is Splitted or Splitting.
func (s Span[C]) Compare(other Ranged) orderable.Order {
	otherLower := other.LowerPoint()
	baseComp := s.lowerPoint.CompareBase(otherLower)
	switch baseComp {
	case orderable.Less, orderable.Greater:
		return baseComp
	case orderable.Equal:
		return s.Seqs().Compare(seqsOf(other))
	case orderable.Tagged:
		dist, order := s.lowerPoint.Distance(otherLower)
		if order == orderable.Greater {
			return order
		}
		if dist >= s.Length()-1 {
			return orderable.Less
		}
		return orderable.Splitted
	default:
		dist, order := s.lowerPoint.Distance(otherLower)
		if order == orderable.Less {
			return order
		}
		if dist >= other.Length()-1 {
			return orderable.Greater
		}
		return orderable.Splitting
	}
}

func (s Span[C]) ToDELSpan() DELSpan {
	return DELSpan{lowerPoint: s.lowerPoint, content: NewDELContent(s.Length())}
}

// Append returns s extended by other, which must directly follow it.
func (s Span[C]) Append(other Span[C]) (Span[C], error) {
	content, err := s.content.Concat(other.content)
	if err != nil {
		return Span[C]{}, err
	}
	return NewSpan(s.lowerPoint, content)
}

func (s Span[C]) LeftSplitAt(index int) (Span[C], error) {
	content, err := s.content.Slice(0, index)
	if err != nil {
		return Span[C]{}, err
	}
	return NewSpan(s.lowerPoint, content)
}

func (s Span[C]) RightSplitAt(index int) (Span[C], error) {
	content, err := s.content.Slice(index, s.Length())
	if err != nil {
		return Span[C]{}, err
	}
	if content.Length() < 1 {
		return Span[C]{}, ErrEmptyContent
	}
	return NewSpan(s.NthPoint(index), content)
}

func (s Span[C]) SplitAt(index int) (left, right Span[C], err error) {
	if left, err = s.LeftSplitAt(index); err != nil {
		return Span[C]{}, Span[C]{}, err
	}
	if right, err = s.RightSplitAt(index); err != nil {
		return Span[C]{}, Span[C]{}, err
	}
	return left, right, nil
}

// SplitWith cuts s right after the point that other is a child of.
func (s Span[C]) SplitWith(other Ranged) (left, right Span[C], err error) {
	dist, _, err := s.lowerPoint.DistanceFrom(other.LowerPoint())
	if err != nil {
		return Span[C]{}, Span[C]{}, err
	}
	return s.SplitAt(dist + 1)
}

// GetAppendableSegmentTo returns the part of s that extends past the end
// of other.
func (s Span[C]) GetAppendableSegmentTo(other Ranged) (Span[C], error) {
	dist, order, err := s.lowerPoint.DistanceFrom(other.LowerPoint())
	if err != nil {
		return Span[C]{}, err
	}
	if order == orderable.Less {
		return s.RightSplitAt(other.Length() + dist)
	}
	index := other.Length() - dist
	if index < 0 {
		return Span[C]{}, ErrUnappendable
	}
	return s.RightSplitAt(index)
}

// GetPrependableSegmentTo returns the part of s that comes before other.
func (s Span[C]) GetPrependableSegmentTo(other Ranged) (Span[C], error) {
	dist, order, err := s.lowerPoint.DistanceFrom(other.LowerPoint())
	if err != nil {
		return Span[C]{}, err
	}
	if order != orderable.Less || dist > s.Length() {
		return Span[C]{}, ErrUnprependable
	}
	return s.LeftSplitAt(dist)
}

// Intersection returns the part of s that other overlaps.
func (s Span[C]) Intersection(other Ranged) (Span[C], error) {
	switch s.Compare(other) {
	case orderable.Splitted, orderable.Less, orderable.Prependable,
		orderable.Appendable, orderable.Greater, orderable.Splitting:
		return Span[C]{}, orderable.ErrNoIntersection
	}

	dist, order := s.lowerPoint.Distance(other.LowerPoint())
	var (
		lowerPoint point.Point
		content    C
		err        error
	)
	if order == orderable.Less {
		length := min(s.Length()-dist, other.Length())
		content, err = s.content.Slice(dist, dist+length)
		lowerPoint = other.LowerPoint()
	} else {
		length := min(other.Length()-dist, s.Length())
		content, err = s.content.Slice(0, length)
		lowerPoint = s.lowerPoint
	}
	if err != nil {
		return Span[C]{}, err
	}
	return NewSpan(lowerPoint, content)
}

func (s Span[C]) Clone() Span[C] {
	return Span[C]{lowerPoint: s.lowerPoint.Clone(), content: s.content.Clone()}
}

func (s Span[C]) String() string {
	return fmt.Sprintf("%v+%d", s.lowerPoint, s.Length())
}

func (s Span[C]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.lowerPoint, s.content})
}

func (s *Span[C]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode span: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decode span: want 2 elements, got %d", len(raw))
	}
	var lowerPoint point.Point
	if err := json.Unmarshal(raw[0], &lowerPoint); err != nil {
		return fmt.Errorf("decode span point: %w", err)
	}
	if string(raw[1]) == "null" {
		return fmt.Errorf("decode span: %w", ErrEmptyContent)
	}
	var content C
	if err := json.Unmarshal(raw[1], &content); err != nil {
		return fmt.Errorf("decode span content: %w", err)
	}
	span, err := NewSpan(lowerPoint, content)
	if err != nil {
		return fmt.Errorf("decode span: %w", err)
	}
	*s = span
	return nil
}

// DecodeTextSpan builds an unformatted text span from a point and text.
func DecodeTextSpan(lowerPoint point.Point, text string) (INSSpan, error) {
	return NewSpan(lowerPoint, NewINSContent(Attributes{{Length: textLength(text)}}, text))
}
