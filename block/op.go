package block

import (
	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/point"
	"github.com/alimasry/go-collab-blocks/text"
)

// DelOp tombstones or restores a block.
type DelOp struct {
	Origin    Origin
	IsDeleted bool
	Stamp     contribution.Stamp
}

// MovOp places a block under ParentBlockID at Point.
type MovOp struct {
	Origin        Origin
	ParentBlockID string
	Point         point.Point
	Stamp         contribution.Stamp
}

type SetOp struct {
	Origin Origin
	Props  PropsDelta
	Stamp  contribution.Stamp
}

type InsTextOp struct {
	Origin Origin
	Span   text.INSSpan
}

type DelTextOp struct {
	Origin Origin
	Span   text.DELSpan
}

type FmtTextOp struct {
	Origin Origin
	Span   text.FMTSpan
}

type ModTextOp struct {
	Origin Origin
	Span   text.MODSpan
}

// The index-addressed operations are always local.

type InsTextAtOp struct {
	Contributor *contribution.Contributor
	Index       int
	Content     *text.INSContent
}

type DelTextAtOp struct {
	Contributor *contribution.Contributor
	Index       int
	Length      int
}

type FmtTextAtOp struct {
	Contributor *contribution.Contributor
	Index       int
	Length      int
	Props       text.PropsDelta
	Stamp       contribution.Stamp
}

// Receipt is what every applied operation reports. Version is set only
// for local operations.
type Receipt struct {
	BlockID string        `json:"blockID"`
	Version *VersionEntry `json:"version,omitempty"`
}

// Position is where a block sits among its siblings.
type Position struct {
	ParentBlockID string      `json:"parentBlockID"`
	Point         point.Point `json:"point"`
}

type DelReceipt struct {
	Receipt
	From bool `json:"from"`
	To   bool `json:"to"`
}

type MovReceipt struct {
	Receipt
	From Position `json:"from"`
	To   Position `json:"to"`
}

type SetReceipt struct {
	Receipt
	From PropsDelta `json:"from"`
	To   PropsDelta `json:"to"`
}

type InsTextReceipt struct {
	Receipt
	Delta []text.INSDelta `json:"delta"`
}

type DelTextReceipt struct {
	Receipt
	Delta []text.DELDelta `json:"delta"`
}

type FmtTextReceipt struct {
	Receipt
}

type ModTextReceipt struct {
	Receipt
	Span text.MODSpan `json:"span"`
}

type InsTextAtReceipt struct {
	Receipt
	Span text.INSSpan `json:"span"`
}

type DelTextAtReceipt struct {
	Receipt
	Spans text.Spans `json:"spans"`
}

type FmtTextAtReceipt struct {
	Receipt
	Spans []text.FMTSpan `json:"spans"`
}
