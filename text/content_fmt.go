package text

import (
	"encoding/json"
	"fmt"
)

// FMTContent is a formatting change over Length characters.
type FMTContent struct {
	length     int
	Attributes Attributes
}

func NewFMTContent(length int, attributes Attributes) *FMTContent {
	return &FMTContent{length: length, Attributes: attributes}
}

func (c *FMTContent) Length() int { return c.length }

func (c *FMTContent) Slice(start, end int) (*FMTContent, error) {
	length, err := validatedLength(end - start)
	if err != nil {
		return nil, err
	}
	return NewFMTContent(length, c.Attributes.Slice(start, end)), nil
}

func (c *FMTContent) Concat(other *FMTContent) (*FMTContent, error) {
	length, err := validatedLength(c.length + other.length)
	if err != nil {
		return nil, err
	}
	return NewFMTContent(length, c.Attributes.Concat(other.Attributes, false)), nil
}

func (c *FMTContent) Clone() *FMTContent {
	return NewFMTContent(c.length, c.Attributes.Clone())
}

func (c *FMTContent) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.length, c.Attributes})
}

func (c *FMTContent) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode fmt content: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decode fmt content: want 2 elements, got %d", len(raw))
	}
	var content FMTContent
	if err := json.Unmarshal(raw[0], &content.length); err != nil {
		return fmt.Errorf("decode fmt length: %w", err)
	}
	if err := json.Unmarshal(raw[1], &content.Attributes); err != nil {
		return fmt.Errorf("decode fmt attributes: %w", err)
	}
	*c = content
	return nil
}
