// Package text implements the rich-text rope: content kinds, spans
// anchored at points, run-length formatting attributes, the AVL tree of
// spans with its edit commands, and the Text facade over it.
package text

import (
	"maps"
	"reflect"
	"unicode/utf8"
)

// Props are the formatting properties of a run of text.
type Props map[string]any

// PropsDelta updates Props. A nil value removes the key.
type PropsDelta map[string]any

func (p Props) clone() Props {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

func (p Props) equal(other Props) bool {
	if len(p) != len(other) {
		return false
	}
	for key, value := range other {
		v, ok := p[key]
		if !ok || !reflect.DeepEqual(v, value) {
			return false
		}
	}
	return true
}

// Lengths are counted in code points.
func textLength(s string) int {
	return utf8.RuneCountInString(s)
}

// textSlice clamps start and end to the text like a string slice that
// never fails.
func textSlice(s string, start, end int) string {
	runes := []rune(s)
	start = max(0, min(start, len(runes)))
	end = max(start, min(end, len(runes)))
	return string(runes[start:end])
}
