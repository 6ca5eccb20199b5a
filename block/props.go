package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/contribution"
)

// ErrInvalidProps is returned when encoded props are neither a leaf
// array nor a nested object.
var ErrInvalidProps = errors.New("invalid-props")

// Prop is one node of a block's property tree: a *PropLeaf or a PropMap.
type Prop interface {
	isProp()
	clone() Prop
}

// PropLeaf is a single stamped value. A leaf without a value records
// that the key was deleted at Stamp.
type PropLeaf struct {
	Stamp    *contribution.Stamp
	Value    any
	HasValue bool
}

// NewPropLeaf returns a leaf holding value. A nil stamp marks a value that
// any stamped write may replace.
func NewPropLeaf(stamp *contribution.Stamp, value any) *PropLeaf {
	return &PropLeaf{Stamp: stamp, Value: value, HasValue: true}
}

// StampLeaf returns a value-less leaf, the form of deletions and of the
// MOV and DEL markers.
func StampLeaf(stamp contribution.Stamp) *PropLeaf {
	return &PropLeaf{Stamp: &stamp}
}

func (*PropLeaf) isProp() {}

func (l *PropLeaf) clone() Prop {
	c := *l
	if l.Stamp != nil {
		stamp := *l.Stamp
		c.Stamp = &stamp
	}
	return &c
}

func (l *PropLeaf) MarshalJSON() ([]byte, error) {
	if !l.HasValue {
		return json.Marshal([]any{l.Stamp})
	}
	return json.Marshal([]any{l.Stamp, l.Value})
}

func (l *PropLeaf) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode prop leaf: %w", err)
	}
	if len(raw) < 1 || len(raw) > 2 {
		return fmt.Errorf("decode prop leaf: %w", ErrInvalidProps)
	}
	var leaf PropLeaf
	if err := json.Unmarshal(raw[0], &leaf.Stamp); err != nil {
		return fmt.Errorf("decode prop stamp: %w", err)
	}
	if len(raw) == 2 {
		if err := json.Unmarshal(raw[1], &leaf.Value); err != nil {
			return fmt.Errorf("decode prop value: %w", err)
		}
		leaf.HasValue = true
	}
	*l = leaf
	return nil
}

// PropMap is a nested level of the property tree.
type PropMap map[string]Prop

func (PropMap) isProp() {}

func (m PropMap) clone() Prop { return m.Clone() }

func (m PropMap) Clone() PropMap {
	if m == nil {
		return nil
	}
	c := make(PropMap, len(m))
	for k, v := range m {
		c[k] = v.clone()
	}
	return c
}

// Leaf returns the leaf at key, or nil when key is absent or nested.
func (m PropMap) Leaf(key string) *PropLeaf {
	leaf, _ := m[key].(*PropLeaf)
	return leaf
}

// Map returns the nested map at key, or nil.
func (m PropMap) Map(key string) PropMap {
	nested, _ := m[key].(PropMap)
	return nested
}

func (m *PropMap) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode props: %w", err)
	}
	props := make(PropMap, len(raw))
	for key, value := range raw {
		prop, err := decodeProp(value)
		if err != nil {
			return fmt.Errorf("decode props %q: %w", key, err)
		}
		props[key] = prop
	}
	*m = props
	return nil
}

func decodeProp(b json.RawMessage) (Prop, error) {
	switch firstByte(b) {
	case '[':
		var leaf PropLeaf
		if err := leaf.UnmarshalJSON(b); err != nil {
			return nil, err
		}
		return &leaf, nil
	case '{':
		var nested PropMap
		if err := nested.UnmarshalJSON(b); err != nil {
			return nil, err
		}
		return nested, nil
	default:
		return nil, ErrInvalidProps
	}
}

func firstByte(b []byte) byte {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// PropsDelta describes a change to a PropMap. A PropsDelta value descends
// into the nested map of the same key; any other value replaces the leaf,
// and nil deletes it.
//
// On the wire a nested delta is an object, a new value is wrapped in a
// one-element array and a deletion is null.
type PropsDelta map[string]any

func (d PropsDelta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d))
	for key, value := range d {
		switch v := value.(type) {
		case nil:
			out[key] = nil
		case PropsDelta:
			out[key] = v
		default:
			out[key] = []any{v}
		}
	}
	return json.Marshal(out)
}

func (d *PropsDelta) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode props delta: %w", err)
	}
	delta := make(PropsDelta, len(raw))
	for key, value := range raw {
		switch firstByte(value) {
		case 'n':
			delta[key] = nil
		case '{':
			var nested PropsDelta
			if err := nested.UnmarshalJSON(value); err != nil {
				return err
			}
			delta[key] = nested
		case '[':
			var wrapped []any
			if err := json.Unmarshal(value, &wrapped); err != nil {
				return fmt.Errorf("decode props delta %q: %w", key, err)
			}
			if len(wrapped) != 1 {
				return fmt.Errorf("decode props delta %q: %w", key, ErrInvalidProps)
			}
			delta[key] = wrapped[0]
		default:
			return fmt.Errorf("decode props delta %q: %w", key, ErrInvalidProps)
		}
	}
	*d = delta
	return nil
}

// setProps writes delta into props with stamp. A leaf is only replaced by
// a newer-or-equal stamp and only when its value changes. It returns the
// previous and the written values of every key that changed, or nils when
// nothing did.
func setProps(props PropMap, delta PropsDelta, stamp contribution.Stamp) (from, to PropsDelta) {
	from, to = PropsDelta{}, PropsDelta{}
	for key, value := range delta {
		if nested, ok := value.(PropsDelta); ok {
			current, exists := props[key]
			target, isMap := current.(PropMap)
			if exists && !isMap {
				continue
			}
			if !exists {
				target = PropMap{}
			}
			nestedFrom, nestedTo := setProps(target, nested, stamp)
			if nestedTo == nil {
				continue
			}
			props[key] = target
			from[key], to[key] = nestedFrom, nestedTo
			continue
		}

		current, exists := props[key]
		leaf, isLeaf := current.(*PropLeaf)
		if exists && !isLeaf {
			continue
		}
		var fromValue any
		if leaf != nil {
			if !contribution.CheckIfNewerOrEqualStamp(leaf.Stamp, &stamp) {
				continue
			}
			fromValue = leaf.Value
		}
		if sameValue(fromValue, value) {
			continue
		}
		from[key], to[key] = fromValue, value
		if value == nil {
			props[key] = StampLeaf(stamp)
		} else {
			s := stamp
			props[key] = NewPropLeaf(&s, value)
		}
	}
	if len(to) == 0 {
		return nil, nil
	}
	return from, to
}

// sameValue compares a and b by their JSON encoding, so that a value set
// through the API equals the same value decoded from the wire (1 and 1.0).
func sameValue(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(x, y)
}
