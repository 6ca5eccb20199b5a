package wire

import (
	"encoding/json"
	"fmt"

	"github.com/alimasry/go-collab-blocks/block"
	"github.com/alimasry/go-collab-blocks/replica"
	"github.com/alimasry/go-collab-blocks/text"
)

// Receipt reports what an applied envelope changed. Change holds the
// block receipt, or the inserted block for bINS.
type Receipt struct {
	Type    Type   `json:"type"`
	BlockID string `json:"blockID"`
	Change  any    `json:"change"`
}

// Apply integrates e into r as a remote operation. Stale operations, and
// inserts of blocks r already holds, leave r unchanged and return a nil
// receipt.
func Apply(r *replica.Replica, e Envelope) (*Receipt, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var (
		change any
		err    error
	)
	switch e.Type {
	case BlockIns:
		if r.Block(e.BlockID) != nil {
			return nil, nil
		}
		r.InsBlock(e.Block.Clone())
		change = r.Block(e.BlockID)
	case BlockDel:
		change, err = nilIfStale(r.DelBlock(e.BlockID, block.DelOp{Origin: *e.Contributor, IsDeleted: *e.IsDeleted, Stamp: *e.Stamp}))
	case BlockMov:
		change, err = nilIfStale(r.MovBlock(e.BlockID, block.MovOp{Origin: *e.Contributor, ParentBlockID: e.ParentBlockID, Point: *e.Point, Stamp: *e.Stamp}))
	case BlockSet:
		change, err = nilIfStale(r.SetBlock(e.BlockID, block.SetOp{Origin: *e.Contributor, Props: e.Props, Stamp: *e.Stamp}))
	case TextIns:
		var span text.INSSpan
		if err = decodeSpan(e, &span); err == nil {
			change, err = nilIfStale(r.InsText(e.BlockID, block.InsTextOp{Origin: *e.Contributor, Span: span}))
		}
	case TextDel:
		var span text.DELSpan
		if err = decodeSpan(e, &span); err == nil {
			change, err = nilIfStale(r.DelText(e.BlockID, block.DelTextOp{Origin: *e.Contributor, Span: span}))
		}
	case TextFmt:
		var span text.FMTSpan
		if err = decodeSpan(e, &span); err == nil {
			change, err = nilIfStale(r.FmtText(e.BlockID, block.FmtTextOp{Origin: *e.Contributor, Span: span}))
		}
	case TextMod:
		var span text.MODSpan
		if err = decodeSpan(e, &span); err == nil {
			change, err = nilIfStale(r.ModText(e.BlockID, block.ModTextOp{Origin: *e.Contributor, Span: span}))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s to %s: %w", e.Type, e.BlockID, err)
	}
	if change == nil {
		return nil, nil
	}
	return &Receipt{Type: e.Type, BlockID: e.BlockID, Change: change}, nil
}

// nilIfStale turns a typed nil receipt into an untyped nil.
func nilIfStale[R any](receipt *R, err error) (any, error) {
	if err != nil || receipt == nil {
		return nil, err
	}
	return receipt, nil
}

func decodeSpan(e Envelope, span any) error {
	if err := json.Unmarshal(e.Span, span); err != nil {
		return fmt.Errorf("%w: %s span: %v", ErrInvalidEnvelope, e.Type, err)
	}
	return nil
}

func localVersion(receipt block.Receipt) (block.VersionEntry, error) {
	if receipt.Version == nil {
		return block.VersionEntry{}, fmt.Errorf("%w: receipt for %s has no version", ErrInvalidEnvelope, receipt.BlockID)
	}
	return *receipt.Version, nil
}

// FromINSAtReceipt turns a local index insert into the envelope peers
// apply.
func FromINSAtReceipt(receipt *block.InsTextAtReceipt) (Envelope, error) {
	version, err := localVersion(receipt.Receipt)
	if err != nil {
		return Envelope{}, err
	}
	return NewTextIns(receipt.BlockID, version, receipt.Span)
}

// FromDELAtReceipt returns one tDEL envelope per removed span.
func FromDELAtReceipt(receipt *block.DelTextAtReceipt) ([]Envelope, error) {
	version, err := localVersion(receipt.Receipt)
	if err != nil {
		return nil, err
	}
	envelopes := make([]Envelope, 0, len(receipt.Spans))
	for _, span := range receipt.Spans.ToDELSpans() {
		e, err := NewTextDel(receipt.BlockID, version, span)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, e)
	}
	return envelopes, nil
}

// FromFMTAtReceipt returns one tFMT envelope per formatted span.
func FromFMTAtReceipt(receipt *block.FmtTextAtReceipt) ([]Envelope, error) {
	version, err := localVersion(receipt.Receipt)
	if err != nil {
		return nil, err
	}
	envelopes := make([]Envelope, 0, len(receipt.Spans))
	for _, span := range receipt.Spans {
		e, err := NewTextFmt(receipt.BlockID, version, span)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, e)
	}
	return envelopes, nil
}
