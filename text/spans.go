package text

import (
	"encoding/json"
	"strings"
)

// Spans is an ordered sequence of inserted spans.
type Spans []INSSpan

func (s Spans) Len() int { return len(s) }

func (s Spans) At(i int) INSSpan { return s[i] }

func (s Spans) Concat(other Spans) Spans {
	out := make(Spans, 0, len(s)+len(other))
	return append(append(out, s...), other...)
}

// SplitAt splits the sequence after offset characters, cutting the span
// that straddles the offset.
func (s Spans) SplitAt(offset int) (left, right Spans, err error) {
	if offset == 0 {
		return Spans{}, s, nil
	}
	left, right = Spans{}, Spans{}
	remaining := offset
	handled := 0
	for ; handled < len(s); handled++ {
		length := s[handled].Length()
		if length > remaining {
			l, r, err := s[handled].SplitAt(remaining)
			if err != nil {
				return nil, nil, err
			}
			left = append(left, l)
			right = append(right, r)
			break
		}
		left = append(left, s[handled])
		if length == remaining {
			break
		}
		remaining -= length
	}
	if handled+1 < len(s) {
		right = append(right, s[handled+1:]...)
	}
	return left, right, nil
}

// ToINSContent joins the spans into one stampless content, or nil when
// there are none.
func (s Spans) ToINSContent() (*INSContent, error) {
	if len(s) == 0 {
		return nil, nil
	}
	content := NewINSContent(Attributes{}, "")
	for _, span := range s {
		var err error
		if content, err = content.ConcatWithoutStamp(span.Content()); err != nil {
			return nil, err
		}
	}
	return content, nil
}

func (s Spans) ToDELSpans() []DELSpan {
	spans := make([]DELSpan, len(s))
	for i, span := range s {
		spans[i] = span.ToDELSpan()
	}
	return spans
}

func (s Spans) TextLength() int {
	total := 0
	for _, span := range s {
		total += span.Length()
	}
	return total
}

func (s Spans) String() string {
	var b strings.Builder
	for _, span := range s {
		b.WriteString(span.Content().TextWithMetaPlaceholder())
	}
	return b.String()
}

func (s Spans) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]INSSpan(s))
}
