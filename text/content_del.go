package text

import (
	"encoding/json"
	"fmt"
)

// DELContent is a tombstone of Length characters.
type DELContent struct {
	length int
}

func NewDELContent(length int) *DELContent {
	return &DELContent{length: length}
}

func (c *DELContent) Length() int { return c.length }

// Slice trusts that 0 <= start <= end <= Length.
func (c *DELContent) Slice(start, end int) (*DELContent, error) {
	length, err := validatedLength(end - start)
	if err != nil {
		return nil, err
	}
	return NewDELContent(length), nil
}

func (c *DELContent) Concat(other *DELContent) (*DELContent, error) {
	length, err := validatedLength(c.length + other.length)
	if err != nil {
		return nil, err
	}
	return NewDELContent(length), nil
}

func (c *DELContent) Clone() *DELContent { return NewDELContent(c.length) }

func (c *DELContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.length)
}

func (c *DELContent) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &c.length); err != nil {
		return fmt.Errorf("decode del content: %w", err)
	}
	return nil
}
