package text

import (
	"testing"
)

func sampleSpans(t *testing.T) Spans {
	t.Helper()
	root := NewTextNode(MustSpan(pt([3]uint32{999, 4, 2}), NewINSContent(Attributes{
		{Length: 6},
		{Length: 5, Props: Props{"CODE": true}},
		{Length: 1},
	}, "hello world!")), nil, nil)
	root.setRight(NewTextNode(textSpan(t, pt([3]uint32{9999, 44, 1}), ":)"), nil, nil))
	return root.Spans()
}

func joined(t *testing.T, spans Spans) string {
	t.Helper()
	content, err := spans.ToINSContent()
	if err != nil {
		t.Fatal(err)
	}
	if content == nil {
		return ""
	}
	return content.TextWithMetaPlaceholder()
}

func TestSpans_SplitAt(t *testing.T) {
	spans := sampleSpans(t)

	tests := []struct {
		name        string
		offset      int
		left, right string
	}{
		{"inside a span", 8, "hello wo", "rld!:)"},
		{"zero offset", 0, "", "hello world!:)"},
		{"max offset", 14, "hello world!:)", ""},
		{"span boundary", 12, "hello world!", ":)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			left, right, err := spans.SplitAt(tc.offset)
			if err != nil {
				t.Fatal(err)
			}
			if got := joined(t, left); got != tc.left {
				t.Errorf("left = %q, want %q", got, tc.left)
			}
			if got := joined(t, right); got != tc.right {
				t.Errorf("right = %q, want %q", got, tc.right)
			}
		})
	}
}

func TestSpans_ToINSContent(t *testing.T) {
	content, err := Spans{}.ToINSContent()
	if err != nil || content != nil {
		t.Errorf("got %v, %v, want nil, nil", content, err)
	}

	content, err = sampleSpans(t).ToINSContent()
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, content.Attributes, Attributes{
		{Length: 6},
		{Length: 5, Props: Props{"CODE": true}},
		{Length: 3},
	})
}

func TestSpans_TextLength(t *testing.T) {
	spans := Spans{
		textSpan(t, pt([3]uint32{999, 4, 1}), "a"),
		textSpan(t, pt([3]uint32{999, 4, 2}), "bcd"),
		textSpan(t, pt([3]uint32{999, 4, 5}), "efghi"),
	}
	if got := spans.TextLength(); got != 9 {
		t.Errorf("got %d, want 9", got)
	}
	if got := spans.String(); got != "abcdefghi" {
		t.Errorf("got %q, want %q", got, "abcdefghi")
	}
	dels := spans.ToDELSpans()
	if len(dels) != 3 || dels[2].Length() != 5 {
		t.Errorf("got %v, want three tombstones ending with length 5", dels)
	}
}
