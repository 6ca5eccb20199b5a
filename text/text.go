package text

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/orderable"
	"github.com/alimasry/go-collab-blocks/point"
)

// ErrInvalidRange is returned for an index-addressed edit that starts
// before the text, has no length, or runs past the end.
var ErrInvalidRange = errors.New("invalid-range")

// Text is the rich text of a block. The zero value is an empty text.
type Text struct {
	root *TextNode
}

func NewText(root *TextNode) *Text {
	return &Text{root: root}
}

func (t *Text) Spans() Spans {
	if t.root == nil {
		return Spans{}
	}
	return t.root.Spans()
}

// SubSpans returns the spans covering the visible range [start, end).
func (t *Text) SubSpans(start, end int) (Spans, error) {
	head, _, err := t.Spans().SplitAt(end)
	if err != nil {
		return nil, err
	}
	_, mid, err := head.SplitAt(start)
	if err != nil {
		return nil, err
	}
	return mid, nil
}

func (t *Text) Length() int {
	if t.root == nil {
		return 0
	}
	return t.root.Length()
}

func (t *Text) String() string {
	return t.Spans().String()
}

// Ins integrates a span minted by any replica.
func (t *Text) Ins(span INSSpan) ([]INSDelta, error) {
	if t.root == nil {
		t.root = NewTextNode(span, nil, nil)
		return []INSDelta{{Index: 0, Content: span.Content()}}, nil
	}
	deltas, err := t.root.ins(span, 0)
	t.root = t.root.balance()
	return deltas, err
}

func (t *Text) Del(span DELSpan) ([]DELDelta, error) {
	if t.root == nil {
		return []DELDelta{}, nil
	}
	deltas, err := t.root.del(span, 0)
	t.root = t.root.balance()
	return deltas, err
}

func (t *Text) Fmt(span FMTSpan) ([]FMTDelta, error) {
	if t.root == nil {
		return []FMTDelta{}, nil
	}
	return t.root.fmt(span, 0)
}

func (t *Text) Mod(span MODSpan) ([]MODDelta, error) {
	if t.root == nil {
		return []MODDelta{}, nil
	}
	return t.root.mod(span, 0)
}

// InsAt inserts content at a visible index and returns the span it was
// given.
func (t *Text) InsAt(index int, content *INSContent, contributor *contribution.Contributor, minter SpanMinter) (INSSpan, error) {
	if t.root == nil {
		span, err := minter.SpanFor(contributor.ReplicaID(), content, point.Point{}, point.Point{})
		if err != nil {
			return INSSpan{}, err
		}
		t.root = NewTextNode(span, nil, nil)
		return span, nil
	}
	span, err := t.root.insAt(index, content, contributor, minter)
	t.root = t.root.balance()
	return span, err
}

// DelAt removes length visible characters from index. It returns nil when
// nothing was removed; a range past the end is cut at the end.
func (t *Text) DelAt(index, length int) (Spans, error) {
	if index < 0 || length <= 0 {
		return nil, fmt.Errorf("del %d at %d: %w", length, index, ErrInvalidRange)
	}
	if t.root == nil {
		return nil, nil
	}
	spans, err := t.root.delAt(orderable.NewClosedRange(index, length), 0)
	t.root = t.root.balance()
	if err != nil || len(spans) == 0 {
		return nil, err
	}
	return spans, nil
}

func (t *Text) FmtAt(index, length int, delta PropsDelta, stamp contribution.Stamp) ([]FMTSpan, error) {
	if t.root == nil {
		return []FMTSpan{}, nil
	}
	return t.root.fmtAt(orderable.NewClosedRange(index, length), delta, stamp, 0)
}

// ModAt overwrites the visible characters from index with text of the
// same length. The whole of text must land inside the current text.
func (t *Text) ModAt(index int, text string) ([]MODSpan, error) {
	content := NewMODContent(text)
	if content.Length() == 0 {
		return []MODSpan{}, nil
	}
	if index < 0 || index+content.Length() > t.Length() {
		return nil, fmt.Errorf("mod %d at %d of %d: %w", content.Length(), index, t.Length(), ErrInvalidRange)
	}
	return t.root.modAt(orderable.NewClosedRange(index, content.Length()), content, 0)
}

// PointAt returns the zero point when index is out of range.
func (t *Text) PointAt(index int) point.Point {
	if t.root == nil {
		return point.Point{}
	}
	return t.root.pointAt(index)
}

// AdjacentPoints returns the neighbouring points around p. Missing sides
// are zero points.
func (t *Text) AdjacentPoints(p point.Point) (lower, upper point.Point) {
	if t.root == nil {
		return point.Point{}, point.Point{}
	}
	return t.root.adjacentPoints(p)
}

// AdjacentOffsets returns the visible indexes around p, with NoOffset for
// missing sides.
func (t *Text) AdjacentOffsets(p point.Point) (lower, upper int) {
	if t.root == nil {
		return NoOffset, NoOffset
	}
	return t.root.adjacentOffsets(p)
}

func (t *Text) Clone() *Text {
	spans := t.Spans()
	cloned := make([]INSSpan, len(spans))
	for i, span := range spans {
		cloned[i] = span.Clone()
	}
	return NewText(TextNodeFromSpans(cloned))
}

func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Spans())
}

func (t *Text) UnmarshalJSON(b []byte) error {
	root, err := DecodeTextNode(b)
	if err != nil {
		return fmt.Errorf("decode text: %w", err)
	}
	t.root = root
	return nil
}
