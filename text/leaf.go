package text

import (
	"encoding/json"
	"fmt"

	"github.com/alimasry/go-collab-blocks/contribution"
)

// Leaf is one run of Length characters sharing props and stamp.
type Leaf struct {
	Length int
	Props  Props
	Stamp  *contribution.Stamp
}

func (l Leaf) Clone(withoutStamp bool) Leaf {
	leaf := Leaf{Length: l.Length, Props: l.Props.clone()}
	if !withoutStamp && l.Stamp != nil {
		stamp := *l.Stamp
		leaf.Stamp = &stamp
	}
	return leaf
}

func (l Leaf) EqualsExceptForLength(other Leaf) bool {
	if (l.Props == nil) != (other.Props == nil) {
		return false
	}
	if (l.Stamp == nil) != (other.Stamp == nil) {
		return false
	}
	if l.Stamp != nil && *l.Stamp != *other.Stamp {
		return false
	}
	if l.Props == nil {
		return true
	}
	return l.Props.equal(other.Props)
}

// Apply writes delta over the props and always takes stamp.
func (l Leaf) Apply(delta PropsDelta, stamp contribution.Stamp) Leaf {
	props := l.Props.clone()
	if props == nil {
		props = Props{}
	}
	for key, value := range delta {
		if value == nil {
			delete(props, key)
		} else {
			props[key] = value
		}
	}
	if len(props) == 0 {
		props = nil
	}
	return Leaf{Length: l.Length, Props: props, Stamp: &stamp}
}

func (l Leaf) MarshalJSON() ([]byte, error) {
	switch {
	case l.Stamp != nil:
		return json.Marshal([]any{l.Length, l.Props, l.Stamp})
	case l.Props != nil:
		return json.Marshal([]any{l.Length, l.Props})
	default:
		return json.Marshal([]any{l.Length})
	}
}

func (l *Leaf) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode leaf: %w", err)
	}
	if len(raw) < 1 || len(raw) > 3 {
		return fmt.Errorf("decode leaf: want 1 to 3 elements, got %d", len(raw))
	}
	var leaf Leaf
	if err := json.Unmarshal(raw[0], &leaf.Length); err != nil {
		return fmt.Errorf("decode leaf length: %w", err)
	}
	if len(raw) > 1 {
		if err := json.Unmarshal(raw[1], &leaf.Props); err != nil {
			return fmt.Errorf("decode leaf props: %w", err)
		}
	}
	if len(raw) > 2 {
		if err := json.Unmarshal(raw[2], &leaf.Stamp); err != nil {
			return fmt.Errorf("decode leaf stamp: %w", err)
		}
	}
	*l = leaf
	return nil
}
