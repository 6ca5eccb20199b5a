package text

import (
	"encoding/json"
	"fmt"
)

// MODContent replaces text in place with text of the same length.
type MODContent struct {
	text string
}

func NewMODContent(text string) *MODContent {
	return &MODContent{text: text}
}

func (c *MODContent) Length() int { return textLength(c.text) }

func (c *MODContent) Text() string { return c.text }

func (c *MODContent) Slice(start, end int) (*MODContent, error) {
	return NewMODContent(textSlice(c.text, start, end)), nil
}

func (c *MODContent) Concat(other *MODContent) (*MODContent, error) {
	return NewMODContent(c.text + other.text), nil
}

func (c *MODContent) Clone() *MODContent { return NewMODContent(c.text) }

func (c *MODContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.text)
}

func (c *MODContent) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &c.text); err != nil {
		return fmt.Errorf("decode mod content: %w", err)
	}
	return nil
}
