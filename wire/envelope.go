// Package wire carries block and text operations between replicas.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/block"
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/point"
	"github.com/alimasry/go-collab-blocks/text"
)

var (
	ErrUnknownType     = errors.New("unknown-operation-type")
	ErrInvalidEnvelope = errors.New("invalid-envelope")
)

// Type tags an envelope with the operation it carries.
type Type string

const (
	BlockIns Type = "bINS"
	BlockDel Type = "bDEL"
	BlockMov Type = "bMOV"
	BlockSet Type = "bSET"
	TextIns  Type = "tINS"
	TextDel  Type = "tDEL"
	TextFmt  Type = "tFMT"
	TextMod  Type = "tMOD"
)

func (t Type) Valid() bool {
	switch t {
	case BlockIns, BlockDel, BlockMov, BlockSet, TextIns, TextDel, TextFmt, TextMod:
		return true
	}
	return false
}

// Envelope is one operation in its remote form. Which fields are set
// depends on Type; Span holds the encoded span of text operations.
type Envelope struct {
	Type          Type                `json:"type"`
	BlockID       string              `json:"blockID"`
	Block         *block.Block        `json:"block,omitempty"`
	Contributor   *block.Origin       `json:"contributor,omitempty"`
	IsDeleted     *bool               `json:"isDeleted,omitempty"`
	ParentBlockID string              `json:"parentBlockID,omitempty"`
	Point         *point.Point        `json:"point,omitempty"`
	Props         block.PropsDelta    `json:"props,omitempty"`
	Stamp         *contribution.Stamp `json:"stamp,omitempty"`
	Span          json.RawMessage     `json:"span,omitempty"`
}

// Validate checks that the fields Type needs are present.
func (e Envelope) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if e.BlockID == "" {
		return fmt.Errorf("%w: %s without blockID", ErrInvalidEnvelope, e.Type)
	}
	if e.Type == BlockIns {
		if e.Block == nil || e.Block.BlockID != e.BlockID {
			return fmt.Errorf("%w: %s for %s without a matching block", ErrInvalidEnvelope, e.Type, e.BlockID)
		}
		return nil
	}
	if e.Contributor == nil || !e.Contributor.IsRemote() {
		return fmt.Errorf("%w: %s for %s without a contributor version", ErrInvalidEnvelope, e.Type, e.BlockID)
	}

	var missing string
	switch e.Type {
	case BlockDel:
		if e.IsDeleted == nil {
			missing = "isDeleted"
		} else if e.Stamp == nil {
			missing = "stamp"
		}
	case BlockMov:
		if e.ParentBlockID == "" {
			missing = "parentBlockID"
		} else if e.Point == nil || e.Point.IsZero() {
			missing = "point"
		} else if e.Stamp == nil {
			missing = "stamp"
		}
	case BlockSet:
		if e.Props == nil {
			missing = "props"
		} else if e.Stamp == nil {
			missing = "stamp"
		}
	default:
		if len(e.Span) == 0 {
			missing = "span"
		}
	}
	if missing != "" {
		return fmt.Errorf("%w: %s for %s without %s", ErrInvalidEnvelope, e.Type, e.BlockID, missing)
	}
	return nil
}

// Decode parses and validates an envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// NewBlockIns wraps a block so that peers can insert it.
func NewBlockIns(b *block.Block) Envelope {
	return Envelope{Type: BlockIns, BlockID: b.BlockID, Block: b}
}

func NewBlockDel(blockID string, version block.VersionEntry, isDeleted bool, stamp contribution.Stamp) Envelope {
	origin := block.Remote(version)
	return Envelope{Type: BlockDel, BlockID: blockID, Contributor: &origin, IsDeleted: &isDeleted, Stamp: &stamp}
}

func NewBlockMov(blockID string, version block.VersionEntry, parentBlockID string, p point.Point, stamp contribution.Stamp) Envelope {
	origin := block.Remote(version)
	return Envelope{Type: BlockMov, BlockID: blockID, Contributor: &origin, ParentBlockID: parentBlockID, Point: &p, Stamp: &stamp}
}

func NewBlockSet(blockID string, version block.VersionEntry, props block.PropsDelta, stamp contribution.Stamp) Envelope {
	origin := block.Remote(version)
	return Envelope{Type: BlockSet, BlockID: blockID, Contributor: &origin, Props: props, Stamp: &stamp}
}

func newTextEnvelope(t Type, blockID string, version block.VersionEntry, span any) (Envelope, error) {
	raw, err := json.Marshal(span)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s span: %w", t, err)
	}
	origin := block.Remote(version)
	return Envelope{Type: t, BlockID: blockID, Contributor: &origin, Span: raw}, nil
}

func NewTextIns(blockID string, version block.VersionEntry, span text.INSSpan) (Envelope, error) {
	return newTextEnvelope(TextIns, blockID, version, span)
}

func NewTextDel(blockID string, version block.VersionEntry, span text.DELSpan) (Envelope, error) {
	return newTextEnvelope(TextDel, blockID, version, span)
}

func NewTextFmt(blockID string, version block.VersionEntry, span text.FMTSpan) (Envelope, error) {
	return newTextEnvelope(TextFmt, blockID, version, span)
}

func NewTextMod(blockID string, version block.VersionEntry, span text.MODSpan) (Envelope, error) {
	return newTextEnvelope(TextMod, blockID, version, span)
}
