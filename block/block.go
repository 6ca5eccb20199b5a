// Package block holds one node of a block-structured document: its
// position among its siblings, its stamped property tree and its
// optional rich text.
package block

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/point"
	"github.com/alimasry/go-collab-blocks/text"
)

var (
	ErrNoText      = errors.New("no-text")
	ErrInvalidData = errors.New("invalid-block-data")
)

// Reserved prop keys.
const (
	PropType = "TYPE"
	PropMov  = "MOV"
	PropDel  = "DEL"
)

// Block is a document node. It is mutated in place by its operations and
// must be used from one goroutine at a time.
type Block struct {
	BlockID       string
	Version       Version
	Point         point.Point
	Props         PropMap
	IsDeleted     bool
	ParentBlockID string

	text *text.Text
}

// New returns a block. A nil body makes a block without text.
func New(blockID string, version Version, p point.Point, props PropMap, isDeleted bool, body *text.Text, parentBlockID string) *Block {
	if version == nil {
		version = Version{}
	}
	if props == nil {
		props = PropMap{}
	}
	return &Block{
		BlockID:       blockID,
		Version:       version,
		Point:         p,
		Props:         props,
		IsDeleted:     isDeleted,
		ParentBlockID: parentBlockID,
		text:          body,
	}
}

// Type is the value of the TYPE prop, or "" when it is unset.
func (b *Block) Type() string {
	leaf := b.Props.Leaf(PropType)
	if leaf == nil {
		return ""
	}
	t, _ := leaf.Value.(string)
	return t
}

func (b *Block) HasText() bool { return b.text != nil }

// Text returns the body, or nil for blocks without text.
func (b *Block) Text() *text.Text { return b.text }

func (b *Block) pointNonce(replicaID uint32) uint32 {
	return b.Version[replicaID].Point()
}

func (b *Block) increasePointNonce(replicaID uint32, length int) {
	nonce := b.Version[replicaID]
	b.Version[replicaID] = Nonce{nonce[0], nonce[1] + uint32(length)}
}

// GenIdentifier reserves length point nonces for replicaID and returns the
// identifier of the last one.
func (b *Block) GenIdentifier(replicaID uint32, length int) point.Identifier {
	id := point.NewIdentifier(replicaID, b.pointNonce(replicaID)+uint32(length))
	b.increasePointNonce(replicaID, length)
	return id
}

// GenPoint mints a point between lower and upper and reserves length
// point nonces for replicaID.
func (b *Block) GenPoint(replicaID uint32, length int, lower, upper point.Point, isNotAppendable bool) (point.Point, error) {
	p, err := point.Between(replicaID, b.pointNonce(replicaID), lower, upper, isNotAppendable)
	if err != nil {
		return point.Point{}, err
	}
	b.increasePointNonce(replicaID, length)
	return p, nil
}

// SpanFor mints the span content will occupy between lower and upper.
// Meta content never extends an earlier span.
func (b *Block) SpanFor(replicaID uint32, content *text.INSContent, lower, upper point.Point) (text.INSSpan, error) {
	if content.Length() < 1 {
		return text.INSSpan{}, text.ErrEmptyContent
	}
	p, err := point.Between(replicaID, b.pointNonce(replicaID), lower, upper, content.IsMeta())
	if err != nil {
		return text.INSSpan{}, err
	}
	span, err := text.NewSpan(p, content)
	if err != nil {
		return text.INSSpan{}, err
	}
	b.increasePointNonce(replicaID, content.Length())
	return span, nil
}

// updateVersion records a remote origin verbatim, or assigns a local one
// the next contributor nonce and returns it.
func (b *Block) updateVersion(origin Origin) *VersionEntry {
	if origin.IsRemote() {
		b.Version[origin.ReplicaID] = *origin.Nonce
		return nil
	}
	nonce := b.Version[origin.ReplicaID]
	entry := &VersionEntry{ReplicaID: origin.ReplicaID, Nonce: Nonce{nonce[0] + 1, nonce[1]}}
	b.Version[entry.ReplicaID] = entry.Nonce
	return entry
}

func (b *Block) receipt(origin Origin) Receipt {
	return Receipt{BlockID: b.BlockID, Version: b.updateVersion(origin)}
}

func (b *Block) markStamp(key string) *contribution.Stamp {
	if leaf := b.Props.Leaf(key); leaf != nil {
		return leaf.Stamp
	}
	return nil
}

// Mov moves the block when op is strictly newer than the last move. It
// returns nil for stale or repeated moves.
func (b *Block) Mov(op MovOp) *MovReceipt {
	if !contribution.CheckIfNewerStamp(b.markStamp(PropMov), &op.Stamp) {
		return nil
	}
	from := Position{ParentBlockID: b.ParentBlockID, Point: b.Point}
	to := Position{ParentBlockID: op.ParentBlockID, Point: op.Point}
	b.ParentBlockID, b.Point = to.ParentBlockID, to.Point
	b.Props[PropMov] = StampLeaf(op.Stamp)
	return &MovReceipt{Receipt: b.receipt(op.Origin), From: from, To: to}
}

// Del sets the deletion flag when op is strictly newer than the last
// deletion change.
func (b *Block) Del(op DelOp) *DelReceipt {
	if !contribution.CheckIfNewerStamp(b.markStamp(PropDel), &op.Stamp) {
		return nil
	}
	from := b.IsDeleted
	b.IsDeleted = op.IsDeleted
	b.Props[PropDel] = StampLeaf(op.Stamp)
	return &DelReceipt{Receipt: b.receipt(op.Origin), From: from, To: op.IsDeleted}
}

// Set writes op.Props key by key. Each key takes a newer-or-equal stamp,
// so replaying a set is harmless but reports nothing.
func (b *Block) Set(op SetOp) *SetReceipt {
	from, to := setProps(b.Props, op.Props, op.Stamp)
	if to == nil {
		return nil
	}
	return &SetReceipt{Receipt: b.receipt(op.Origin), From: from, To: to}
}

func (b *Block) InsText(op InsTextOp) (*InsTextReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	delta, err := b.text.Ins(op.Span)
	if err != nil {
		return nil, fmt.Errorf("ins text into %s: %w", b.BlockID, err)
	}
	return &InsTextReceipt{Receipt: b.receipt(op.Origin), Delta: delta}, nil
}

func (b *Block) DelText(op DelTextOp) (*DelTextReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	delta, err := b.text.Del(op.Span)
	if err != nil {
		return nil, fmt.Errorf("del text from %s: %w", b.BlockID, err)
	}
	return &DelTextReceipt{Receipt: b.receipt(op.Origin), Delta: delta}, nil
}

func (b *Block) FmtText(op FmtTextOp) (*FmtTextReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	if _, err := b.text.Fmt(op.Span); err != nil {
		return nil, fmt.Errorf("fmt text of %s: %w", b.BlockID, err)
	}
	return &FmtTextReceipt{Receipt: b.receipt(op.Origin)}, nil
}

func (b *Block) ModText(op ModTextOp) (*ModTextReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	if _, err := b.text.Mod(op.Span); err != nil {
		return nil, fmt.Errorf("mod text of %s: %w", b.BlockID, err)
	}
	return &ModTextReceipt{Receipt: b.receipt(op.Origin), Span: op.Span}, nil
}

// InsTextAt inserts content at a visible index, minting its points from
// this block's counters.
func (b *Block) InsTextAt(op InsTextAtOp) (*InsTextAtReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	span, err := b.text.InsAt(op.Index, op.Content, op.Contributor, b)
	if err != nil {
		return nil, fmt.Errorf("ins text at %d into %s: %w", op.Index, b.BlockID, err)
	}
	return &InsTextAtReceipt{Receipt: b.receipt(Local(op.Contributor.ReplicaID())), Span: span}, nil
}

// DelTextAt returns nil when the range held no text.
func (b *Block) DelTextAt(op DelTextAtOp) (*DelTextAtReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	spans, err := b.text.DelAt(op.Index, op.Length)
	if err != nil {
		return nil, fmt.Errorf("del text at %d from %s: %w", op.Index, b.BlockID, err)
	}
	if spans == nil {
		return nil, nil
	}
	return &DelTextAtReceipt{Receipt: b.receipt(Local(op.Contributor.ReplicaID())), Spans: spans}, nil
}

func (b *Block) FmtTextAt(op FmtTextAtOp) (*FmtTextAtReceipt, error) {
	if b.text == nil {
		return nil, ErrNoText
	}
	spans, err := b.text.FmtAt(op.Index, op.Length, op.Props, op.Stamp)
	if err != nil {
		return nil, fmt.Errorf("fmt text at %d of %s: %w", op.Index, b.BlockID, err)
	}
	return &FmtTextAtReceipt{Receipt: b.receipt(Local(op.Contributor.ReplicaID())), Spans: spans}, nil
}

// Clone returns a deep copy that shares nothing mutable with b.
func (b *Block) Clone() *Block {
	var body *text.Text
	if b.text != nil {
		body = b.text.Clone()
	}
	return New(b.BlockID, b.Version.Clone(), b.Point.Clone(), b.Props.Clone(), b.IsDeleted, body, b.ParentBlockID)
}

// MarshalJSON encodes the block as
// [blockID, version, point, props, isDeleted, text, parentBlockID], with
// null for a missing text or parent.
func (b *Block) MarshalJSON() ([]byte, error) {
	var body, parent any
	if b.text != nil {
		body = b.text
	}
	if b.ParentBlockID != "" {
		parent = b.ParentBlockID
	}
	return json.Marshal([]any{b.BlockID, b.Version, b.Point, b.Props, b.IsDeleted, body, parent})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}
	if len(raw) < 5 || len(raw) > 7 {
		return fmt.Errorf("decode block: %w: %d elements", ErrInvalidData, len(raw))
	}

	var decoded Block
	if err := json.Unmarshal(raw[0], &decoded.BlockID); err != nil {
		return fmt.Errorf("decode block id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &decoded.Version); err != nil {
		return fmt.Errorf("decode block %s version: %w", decoded.BlockID, err)
	}
	if err := json.Unmarshal(raw[2], &decoded.Point); err != nil {
		return fmt.Errorf("decode block %s point: %w", decoded.BlockID, err)
	}
	if err := json.Unmarshal(raw[3], &decoded.Props); err != nil {
		return fmt.Errorf("decode block %s props: %w", decoded.BlockID, err)
	}
	if err := json.Unmarshal(raw[4], &decoded.IsDeleted); err != nil {
		return fmt.Errorf("decode block %s deletion: %w", decoded.BlockID, err)
	}
	if len(raw) > 5 && string(raw[5]) != "null" {
		decoded.text = &text.Text{}
		if err := json.Unmarshal(raw[5], decoded.text); err != nil {
			return fmt.Errorf("decode block %s text: %w", decoded.BlockID, err)
		}
	}
	if len(raw) > 6 && string(raw[6]) != "null" {
		if err := json.Unmarshal(raw[6], &decoded.ParentBlockID); err != nil {
			return fmt.Errorf("decode block %s parent: %w", decoded.BlockID, err)
		}
	}
	*b = *New(decoded.BlockID, decoded.Version, decoded.Point, decoded.Props, decoded.IsDeleted, decoded.text, decoded.ParentBlockID)
	return nil
}

// Decode parses a block from its encoded form.
func Decode(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
