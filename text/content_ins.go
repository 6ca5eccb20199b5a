package text

import (
	"encoding/json"
	"fmt"

	"github.com/alimasry/go-collab-blocks/contribution"
)

// INSContent is inserted content: either a run of text or a single meta
// character (an embed) that has no text and a length of one.
type INSContent struct {
	Attributes Attributes
	text       string
	meta       bool
}

func NewINSContent(attributes Attributes, text string) *INSContent {
	return &INSContent{Attributes: attributes, text: text}
}

func NewMetaContent(attributes Attributes) *INSContent {
	return &INSContent{Attributes: attributes, meta: true}
}

// INSContentFrom builds text content with a single leaf of props.
func INSContentFrom(text string, props Props, stamp *contribution.Stamp) *INSContent {
	length := textLength(text)
	if length == 0 {
		length = 1
	}
	return NewINSContent(Attributes{{Length: length, Props: props, Stamp: stamp}}, text)
}

func MetaContentFrom(props Props, stamp *contribution.Stamp) *INSContent {
	return NewMetaContent(Attributes{{Length: 1, Props: props, Stamp: stamp}})
}

func (c *INSContent) Length() int {
	if c.meta {
		return 1
	}
	return textLength(c.text)
}

func (c *INSContent) IsMeta() bool { return c.meta }

func (c *INSContent) Text() string { return c.text }

func (c *INSContent) Slice(start, end int) (*INSContent, error) {
	if c.meta {
		return nil, ErrSplitMetaContent
	}
	return NewINSContent(c.Attributes.Slice(start, end), textSlice(c.text, start, end)), nil
}

func (c *INSContent) Concat(other *INSContent) (*INSContent, error) {
	return c.concat(other, false)
}

// ConcatWithoutStamp drops every stamp of the result.
func (c *INSContent) ConcatWithoutStamp(other *INSContent) (*INSContent, error) {
	return c.concat(other, true)
}

func (c *INSContent) concat(other *INSContent, withoutStamp bool) (*INSContent, error) {
	if c.meta || other.meta {
		return nil, ErrConcatMetaContent
	}
	return NewINSContent(c.Attributes.Concat(other.Attributes, withoutStamp), c.text+other.text), nil
}

func (c *INSContent) splitAttributes(index, length int) (left, affected, right Attributes) {
	left = c.Attributes.Slice(0, index)
	affected = c.Attributes.Slice(index, index+length)
	right = c.Attributes.Slice(index+length, c.Length())
	return left, affected, right
}

// Fmt merges other's attributes in at index, keeping the newer stamp per
// segment, and returns the affected attributes.
func (c *INSContent) Fmt(index int, other *FMTContent) Attributes {
	left, affected, right := c.splitAttributes(index, other.Length())
	affected = affected.Merge(other.Attributes)
	c.Attributes = left.Concat(affected, false).Concat(right, false)
	return affected
}

// FmtAt applies delta to length characters from index and returns the
// affected attributes.
func (c *INSContent) FmtAt(index, length int, delta PropsDelta, stamp contribution.Stamp) Attributes {
	left, affected, right := c.splitAttributes(index, length)
	affected = affected.Apply(delta, stamp)
	c.Attributes = left.Concat(affected, false).Concat(right, false)
	return affected
}

// Mod overwrites the text at index with other's text of the same length.
func (c *INSContent) Mod(index int, other *MODContent) error {
	if c.meta {
		return ErrNotUpdatable
	}
	length := c.Length()
	left := textSlice(c.text, 0, index)
	right := textSlice(c.text, index+other.Length(), length)
	if length-textLength(left)-textLength(right) != other.Length() {
		return ErrNotUpdatable
	}
	c.text = left + other.text + right
	return nil
}

// TextWithMetaPlaceholder renders a meta character as a single space.
func (c *INSContent) TextWithMetaPlaceholder() string {
	if c.meta {
		return " "
	}
	return c.text
}

func (c *INSContent) Clone() *INSContent {
	return &INSContent{Attributes: c.Attributes.Clone(), text: c.text, meta: c.meta}
}

func (c *INSContent) MarshalJSON() ([]byte, error) {
	if c.meta {
		return json.Marshal([]any{c.Attributes})
	}
	return json.Marshal([]any{c.Attributes, c.text})
}

func (c *INSContent) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode ins content: %w", err)
	}
	if len(raw) < 1 || len(raw) > 2 {
		return fmt.Errorf("decode ins content: want 1 or 2 elements, got %d", len(raw))
	}
	var content INSContent
	if err := json.Unmarshal(raw[0], &content.Attributes); err != nil {
		return fmt.Errorf("decode ins attributes: %w", err)
	}
	if content.Attributes == nil {
		content.Attributes = Attributes{}
	}
	content.meta = len(raw) == 1 || string(raw[1]) == "null"
	if !content.meta {
		if err := json.Unmarshal(raw[1], &content.text); err != nil {
			return fmt.Errorf("decode ins text: %w", err)
		}
	}
	*c = content
	return nil
}
