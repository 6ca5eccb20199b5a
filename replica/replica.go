// Package replica is one replica's view of a document: its identity, its
// blocks and the parent to children index that orders them.
package replica

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/alimasry/go-collab-blocks/block"
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/orderable"
	"github.com/alimasry/go-collab-blocks/point"
	"github.com/alimasry/go-collab-blocks/text"
)

var ErrUnknownBlock = errors.New("unknown-block")

// Replica is not safe for concurrent use; callers serialize access per
// document.
type Replica struct {
	contributor *contribution.Contributor
	clock       contribution.Clock
	blocks      map[string]*block.Block
	order       []string
	children    map[string][]*block.Block
}

// New builds a replica over blocks, indexing their children.
func New(contributor *contribution.Contributor, blocks []*block.Block) *Replica {
	r := &Replica{
		contributor: contributor,
		clock:       contribution.SystemClock,
		blocks:      make(map[string]*block.Block, len(blocks)),
	}
	for _, b := range blocks {
		if _, ok := r.blocks[b.BlockID]; !ok {
			r.order = append(r.order, b.BlockID)
		}
		r.blocks[b.BlockID] = b
	}
	r.children = r.indexChildren()
	return r
}

// WithClock replaces the clock behind GenNewStamp.
func (r *Replica) WithClock(clock contribution.Clock) *Replica {
	r.clock = clock
	return r
}

func (r *Replica) indexChildren() map[string][]*block.Block {
	children := make(map[string][]*block.Block)
	parents := mapset.NewThreadUnsafeSet[string]()
	for _, id := range r.order {
		b := r.blocks[id]
		if b.ParentBlockID == "" {
			continue
		}
		parents.Add(b.ParentBlockID)
		children[b.ParentBlockID] = append(children[b.ParentBlockID], b)
	}
	for parentID := range parents.Iter() {
		slices.SortStableFunc(children[parentID], compareBlocks)
	}
	return children
}

func compareBlocks(a, b *block.Block) int {
	switch a.Point.Compare(b.Point) {
	case orderable.Less:
		return -1
	case orderable.Greater:
		return 1
	default:
		return 0
	}
}

func (r *Replica) ReplicaID() uint32 { return r.contributor.ReplicaID() }

func (r *Replica) Contributor() *contribution.Contributor { return r.contributor }

// Block returns nil for unknown ids.
func (r *Replica) Block(blockID string) *block.Block {
	return r.blocks[blockID]
}

func (r *Replica) lookup(blockID string) (*block.Block, error) {
	b, ok := r.blocks[blockID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	return b, nil
}

// Blocks returns every block in insertion order.
func (r *Replica) Blocks() []*block.Block {
	blocks := make([]*block.Block, len(r.order))
	for i, id := range r.order {
		blocks[i] = r.blocks[id]
	}
	return blocks
}

// ChildBlocks returns the children of blockID in point order.
func (r *Replica) ChildBlocks(blockID string, withDeleted bool) []*block.Block {
	children := r.children[blockID]
	if withDeleted {
		return slices.Clone(children)
	}
	alive := make([]*block.Block, 0, len(children))
	for _, child := range children {
		if !child.IsDeleted {
			alive = append(alive, child)
		}
	}
	return alive
}

// FindBlock returns the first block, in insertion order, that matches.
func (r *Replica) FindBlock(match func(*block.Block) bool) *block.Block {
	for _, id := range r.order {
		if b := r.blocks[id]; match(b) {
			return b
		}
	}
	return nil
}

func (r *Replica) siblingBlocks(blockID string, withDeleted bool) ([]*block.Block, int) {
	b := r.blocks[blockID]
	if b == nil || b.ParentBlockID == "" {
		return nil, -1
	}
	siblings := r.ChildBlocks(b.ParentBlockID, withDeleted)
	index := slices.IndexFunc(siblings, func(s *block.Block) bool { return s.BlockID == blockID })
	return siblings, index
}

// PrevSiblingBlock returns nil for first children and for blocks that
// are not among their parent's children.
func (r *Replica) PrevSiblingBlock(blockID string, withDeleted bool) *block.Block {
	siblings, index := r.siblingBlocks(blockID, withDeleted)
	if index < 1 {
		return nil
	}
	return siblings[index-1]
}

func (r *Replica) NextSiblingBlock(blockID string, withDeleted bool) *block.Block {
	siblings, index := r.siblingBlocks(blockID, withDeleted)
	if index < 0 || index == len(siblings)-1 {
		return nil
	}
	return siblings[index+1]
}

// PrevBlock is the block before blockID in depth-first document order:
// the last descendant of the previous sibling, or else the parent.
func (r *Replica) PrevBlock(blockID string, withDeleted bool) *block.Block {
	prev := r.PrevSiblingBlock(blockID, withDeleted)
	if prev == nil {
		b := r.blocks[blockID]
		if b == nil || b.ParentBlockID == "" {
			return nil
		}
		return r.blocks[b.ParentBlockID]
	}

	seen := mapset.NewThreadUnsafeSet(prev.BlockID)
	for children := r.ChildBlocks(prev.BlockID, withDeleted); len(children) > 0; children = r.ChildBlocks(prev.BlockID, withDeleted) {
		prev = children[len(children)-1]
		if !seen.Add(prev.BlockID) {
			break
		}
	}
	return prev
}

// NextBlock is the block after blockID in depth-first document order: its
// first child, or else the next sibling of it or of its nearest ancestor.
func (r *Replica) NextBlock(blockID string, withDeleted bool) *block.Block {
	if children := r.ChildBlocks(blockID, withDeleted); len(children) > 0 {
		return children[0]
	}
	if next := r.NextSiblingBlock(blockID, withDeleted); next != nil {
		return next
	}

	seen := mapset.NewThreadUnsafeSet(blockID)
	for current := r.blocks[blockID]; current != nil && current.ParentBlockID != ""; {
		parentID := current.ParentBlockID
		if !seen.Add(parentID) {
			return nil
		}
		if next := r.NextSiblingBlock(parentID, withDeleted); next != nil {
			return next
		}
		current = r.blocks[parentID]
	}
	return nil
}

// GenNewStamp stamps a local write with the replica's clock.
func (r *Replica) GenNewStamp() contribution.Stamp {
	return contribution.Stamp{ReplicaID: r.ReplicaID(), Timestamp: r.clock()}
}

// ReplaceBlock stores b in place of any block with the same id and
// reindexes it under its parent.
func (r *Replica) ReplaceBlock(b *block.Block) {
	if existing, ok := r.blocks[b.BlockID]; ok {
		r.removeFromParent(existing.BlockID, existing.ParentBlockID)
	} else {
		r.order = append(r.order, b.BlockID)
	}
	r.blocks[b.BlockID] = b
	r.addToParent(b)
}

func (r *Replica) addToParent(b *block.Block) {
	if b.ParentBlockID == "" {
		return
	}
	children := r.children[b.ParentBlockID]
	if slices.ContainsFunc(children, func(child *block.Block) bool { return child.BlockID == b.BlockID }) {
		return
	}
	index := slices.IndexFunc(children, func(child *block.Block) bool {
		return child.Point.Compare(b.Point) == orderable.Greater
	})
	if index < 0 {
		index = len(children)
	}
	r.children[b.ParentBlockID] = slices.Insert(children, index, b)
}

func (r *Replica) removeFromParent(blockID, parentBlockID string) {
	if parentBlockID == "" {
		return
	}
	r.children[parentBlockID] = slices.DeleteFunc(r.children[parentBlockID], func(child *block.Block) bool {
		return child.BlockID == blockID
	})
}

// InsBlock adds b, or re-indexes the block already stored under its id.
// It is idempotent.
func (r *Replica) InsBlock(b *block.Block) bool {
	target, ok := r.blocks[b.BlockID]
	if !ok {
		target = b
		r.blocks[b.BlockID] = b
		r.order = append(r.order, b.BlockID)
	}
	r.addToParent(target)
	return true
}

// DelBlock applies op and keeps the children index in step. Stale ops
// return a nil receipt.
func (r *Replica) DelBlock(blockID string, op block.DelOp) (*block.DelReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	receipt := b.Del(op)
	if receipt == nil {
		return nil, nil
	}
	if op.IsDeleted {
		r.removeFromParent(b.BlockID, b.ParentBlockID)
	} else {
		r.addToParent(b)
	}
	return receipt, nil
}

func (r *Replica) MovBlock(blockID string, op block.MovOp) (*block.MovReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	receipt := b.Mov(op)
	if receipt == nil {
		return nil, nil
	}
	r.removeFromParent(b.BlockID, receipt.From.ParentBlockID)
	r.addToParent(b)
	return receipt, nil
}

func (r *Replica) SetBlock(blockID string, op block.SetOp) (*block.SetReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.Set(op), nil
}

func (r *Replica) InsText(blockID string, op block.InsTextOp) (*block.InsTextReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.InsText(op)
}

func (r *Replica) DelText(blockID string, op block.DelTextOp) (*block.DelTextReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.DelText(op)
}

func (r *Replica) FmtText(blockID string, op block.FmtTextOp) (*block.FmtTextReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.FmtText(op)
}

func (r *Replica) ModText(blockID string, op block.ModTextOp) (*block.ModTextReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.ModText(op)
}

func (r *Replica) InsTextAt(blockID string, op block.InsTextAtOp) (*block.InsTextAtReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.InsTextAt(op)
}

func (r *Replica) DelTextAt(blockID string, op block.DelTextAtOp) (*block.DelTextAtReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.DelTextAt(op)
}

func (r *Replica) FmtTextAt(blockID string, op block.FmtTextAtOp) (*block.FmtTextAtReceipt, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	return b.FmtTextAt(op)
}

func (r *Replica) GenIdentifier(nonce uint32) point.Identifier {
	return point.NewIdentifier(r.ReplicaID(), nonce)
}

func (r *Replica) GenPointBetween(nonce uint32, lower, upper point.Point, isNotAppendable bool) (point.Point, error) {
	return point.Between(r.ReplicaID(), nonce, lower, upper, isNotAppendable)
}

// GenBlockPoint mints the point of a new block between two siblings.
func (r *Replica) GenBlockPoint(lower, upper point.Point) (point.Point, error) {
	return r.contributor.BlockPointBetween(lower, upper)
}

func (r *Replica) GenSpanFor(b *block.Block, content *text.INSContent) (text.INSSpan, error) {
	return b.SpanFor(r.ReplicaID(), content, point.Point{}, point.Point{})
}

// SubSpans returns the spans of blockID's text in [start, end), or none
// for blocks without text.
func (r *Replica) SubSpans(blockID string, start, end int) (text.Spans, error) {
	b, err := r.lookup(blockID)
	if err != nil {
		return nil, err
	}
	if !b.HasText() {
		return text.Spans{}, nil
	}
	return b.Text().SubSpans(start, end)
}

// Stringify returns the plain text of blockID, or "" when it has none.
func (r *Replica) Stringify(blockID string) string {
	b := r.blocks[blockID]
	if b == nil || !b.HasText() {
		return ""
	}
	return b.Text().String()
}

// PointAt returns the zero point when blockID has no text or index is out
// of range.
func (r *Replica) PointAt(blockID string, index int) point.Point {
	b := r.blocks[blockID]
	if b == nil || !b.HasText() {
		return point.Point{}
	}
	return b.Text().PointAt(index)
}

type data struct {
	ReplicaID uint32         `json:"replicaID"`
	Blocks    []*block.Block `json:"blocks"`
}

func (r *Replica) MarshalJSON() ([]byte, error) {
	return json.Marshal(data{ReplicaID: r.ReplicaID(), Blocks: r.Blocks()})
}

// Encode is the JSON snapshot of the replica.
func (r *Replica) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode rebuilds a replica from its snapshot. The block nonce resumes
// after the highest block point the replica minted.
func Decode(b []byte) (*Replica, error) {
	var d data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode replica: %w", err)
	}
	var blockNonce uint32
	for _, blk := range d.Blocks {
		if blk == nil {
			return nil, fmt.Errorf("decode replica: %w", block.ErrInvalidData)
		}
		if blk.Point.IsZero() || blk.Point.ReplicaID() != d.ReplicaID {
			continue
		}
		blockNonce = max(blockNonce, blk.Point.Nonce())
	}
	return New(contribution.NewContributor(d.ReplicaID, blockNonce), d.Blocks), nil
}
