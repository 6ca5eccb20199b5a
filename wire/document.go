package wire

import (
	"fmt"

	"github.com/alimasry/go-collab-blocks/replica"
)

// Document is a replica together with the envelopes it has applied since
// it was loaded.
type Document struct {
	Replica *replica.Replica
	Version int
	History []Envelope
}

// NewDocument wraps r, whose snapshot already reflects version operations.
func NewDocument(r *replica.Replica, version int) *Document {
	return &Document{Replica: r, Version: version}
}

// Apply applies e and records it when it changed the replica.
func (d *Document) Apply(e Envelope) (*Receipt, error) {
	receipt, err := Apply(d.Replica, e)
	if err != nil {
		return nil, fmt.Errorf("apply to document v%d: %w", d.Version, err)
	}
	if receipt == nil {
		return nil, nil
	}
	d.Version++
	d.History = append(d.History, e)
	return receipt, nil
}

// Since returns the envelopes applied after version. It reports false
// when that history predates the load or lies in the future.
func (d *Document) Since(version int) ([]Envelope, bool) {
	base := d.Version - len(d.History)
	if version < base || version > d.Version {
		return nil, false
	}
	return d.History[version-base:], true
}
