package block

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/sanity-io/litter"
	"github.com/wI2L/jsondiff"

	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/point"
	"github.com/alimasry/go-collab-blocks/text"
)

const fixtureBlock = `["block-id", {"3": [5, 7]}, [[2, 4, 6]], {
	"TYPE": [[11, 13], "CL"],
	"DONE": [null, true],
	"GLOBAL_COUNT": [null, true],
	"MOV": [[9, 11]],
	"DATABASE": {
		"1-1": {"name": [null, "a"]},
		"1-2": {"name": [[9, 11], "b"]},
		"1-3": {"name": [[11, 13], "c"]}
	}
}, false, [], "parent-block-id"]`

var remote = Remote(VersionEntry{ReplicaID: 95, Nonce: Nonce{97, 99}})

func mustDecodeBlock(t *testing.T, data string) *Block {
	t.Helper()
	b, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return b
}

func pt(tags ...[3]uint32) point.Point {
	return point.MustDecode(point.Data(tags))
}

func newTextBlock(version Version) *Block {
	return New("block-id", version, point.PointMIN.Clone(), PropMap{PropType: NewPropLeaf(nil, "LINE")}, false, &text.Text{}, "")
}

func assertJSON(t *testing.T, got any, want string) {
	t.Helper()
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	patch, err := jsondiff.CompareJSON([]byte(want), b)
	if err != nil {
		t.Fatalf("CompareJSON: %v", err)
	}
	if len(patch) > 0 {
		t.Errorf("got %s, want %s\ndiff: %v", b, want, patch)
	}
}

func assertDeepEqual(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %s, want %s", litter.Sdump(got), litter.Sdump(want))
	}
}

func assertVersion(t *testing.T, b *Block, want Version) {
	t.Helper()
	if !reflect.DeepEqual(b.Version, want) {
		t.Errorf("version = %v, want %v", b.Version, want)
	}
}

func TestBlock_Type(t *testing.T) {
	subject := New("block-id", nil, point.PointMIN.Clone(), PropMap{PropType: NewPropLeaf(nil, "BLOCKQUOTE")}, false, &text.Text{}, "")
	if got := subject.Type(); got != "BLOCKQUOTE" {
		t.Errorf("Type() = %q, want BLOCKQUOTE", got)
	}
	if got := New("block-id", nil, point.PointMIN, nil, false, nil, "").Type(); got != "" {
		t.Errorf("Type() without TYPE = %q, want empty", got)
	}
}

func TestBlock_HasText(t *testing.T) {
	if !newTextBlock(nil).HasText() {
		t.Error("text block reports no text")
	}
	subject := New("block-id", nil, point.PointMIN, nil, false, nil, "")
	if subject.HasText() || subject.Text() != nil {
		t.Error("block without text reports text")
	}
	if _, err := subject.InsText(InsTextOp{Origin: remote}); !errors.Is(err, ErrNoText) {
		t.Errorf("got %v, want %v", err, ErrNoText)
	}
}

func TestBlock_JSON(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	if subject.BlockID != "block-id" || subject.ParentBlockID != "parent-block-id" || !subject.HasText() {
		t.Errorf("decoded %s", litter.Sdump(subject))
	}
	assertJSON(t, subject, fixtureBlock)

	t.Run("without text or parent", func(t *testing.T) {
		subject := mustDecodeBlock(t, `["b", {}, [[1, 1, 1]], {"TYPE": [null, "PAGE"]}, true]`)
		if subject.HasText() || subject.ParentBlockID != "" || !subject.IsDeleted {
			t.Errorf("decoded %s", litter.Sdump(subject))
		}
		assertJSON(t, subject, `["b", {}, [[1, 1, 1]], {"TYPE": [null, "PAGE"]}, true, null, null]`)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, data := range []string{
			`["b", {}, [[1, 1, 1]]]`,
			`{"blockID": "b"}`,
			`["b", {}, [[1, 1, 1]], {"TYPE": "PAGE"}, false]`,
		} {
			if _, err := Decode([]byte(data)); err == nil {
				t.Errorf("Decode(%s) succeeded", data)
			}
		}
	})
}

func TestBlock_Clone(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	cloned := subject.Clone()
	cloned.Set(SetOp{Origin: remote, Props: PropsDelta{"DONE": false}, Stamp: contribution.Stamp{ReplicaID: 1, Timestamp: 99}})
	cloned.Version[3] = Nonce{0, 0}
	assertJSON(t, subject, fixtureBlock)
}

func TestBlock_SpanFor(t *testing.T) {
	t.Run("between points", func(t *testing.T) {
		subject := newTextBlock(nil)
		span, err := subject.SpanFor(7, text.INSContentFrom("foobar", nil, nil), pt([3]uint32{2147483647, 5, 1}), pt([3]uint32{4294967295, 0, 2}))
		if err != nil {
			t.Fatal(err)
		}
		assertDeepEqual(t, span.LowerPoint(), pt([3]uint32{3221225471, 7, 1}))
		if got := subject.Version[7].Point(); got != 6 {
			t.Errorf("point nonce = %d, want 6", got)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		subject := newTextBlock(nil)
		if _, err := subject.SpanFor(5, text.INSContentFrom("", nil, nil), point.Point{}, point.Point{}); !errors.Is(err, text.ErrEmptyContent) {
			t.Errorf("got %v, want %v", err, text.ErrEmptyContent)
		}
		if len(subject.Version) != 0 {
			t.Errorf("version changed to %v", subject.Version)
		}
	})

	t.Run("appendable", func(t *testing.T) {
		subject := newTextBlock(Version{5: {0, 1}})
		span, err := subject.SpanFor(5, text.INSContentFrom("world", nil, nil), pt([3]uint32{5, 5, 1}), point.Point{})
		if err != nil {
			t.Fatal(err)
		}
		assertDeepEqual(t, span.LowerPoint(), pt([3]uint32{5, 5, 2}))
	})

	t.Run("meta content is never appended", func(t *testing.T) {
		subject := newTextBlock(Version{5: {0, 1}})
		span, err := subject.SpanFor(5, text.MetaContentFrom(nil, nil), pt([3]uint32{5, 5, 1}), point.Point{})
		if err != nil {
			t.Fatal(err)
		}
		if span.LowerPoint().Depth() != 1 || span.LowerPoint().Nonce() != 2 || span.LowerPoint().Tags()[0].Priority == 5 {
			t.Errorf("got %v, want a fresh tag", span.LowerPoint())
		}
	})

	t.Run("defaults to the sentinels", func(t *testing.T) {
		subject := newTextBlock(Version{5: {0, 1}})
		span, err := subject.SpanFor(5, text.INSContentFrom("world", nil, nil), point.Point{}, point.Point{})
		if err != nil {
			t.Fatal(err)
		}
		assertDeepEqual(t, span.LowerPoint(), pt([3]uint32{2147483647, 5, 2}))
	})

	t.Run("density", func(t *testing.T) {
		subject := newTextBlock(nil)
		span, err := subject.SpanFor(7, text.INSContentFrom("foobar", nil, nil),
			pt([3]uint32{3, 3, 3}, [3]uint32{5, 5, 5}),
			pt([3]uint32{3, 3, 3}, [3]uint32{6, 6, 6}))
		if err != nil {
			t.Fatal(err)
		}
		assertDeepEqual(t, span.LowerPoint(), pt([3]uint32{3, 3, 3}, [3]uint32{5, 5, 4294967295}, [3]uint32{2147483647, 7, 1}))
	})
}

func TestBlock_GenIdentifier(t *testing.T) {
	subject := newTextBlock(Version{5: {1, 3}})
	if got := subject.GenIdentifier(5, 2); got != "5-5" {
		t.Errorf("GenIdentifier() = %q, want 5-5", got)
	}
	assertVersion(t, subject, Version{5: {1, 5}})
}

func TestBlock_GenPoint(t *testing.T) {
	subject := newTextBlock(nil)
	got, err := subject.GenPoint(9, 4, point.Point{}, point.Point{}, false)
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, got, pt([3]uint32{2147483647, 9, 1}))
	assertVersion(t, subject, Version{9: {0, 4}})
}

func TestBlock_Mov(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	from := Position{ParentBlockID: subject.ParentBlockID, Point: subject.Point.Clone()}
	to, err := subject.Point.Offset(3)
	if err != nil {
		t.Fatal(err)
	}
	op := MovOp{Origin: remote, ParentBlockID: "new-parent-block-id", Point: to, Stamp: contribution.Stamp{ReplicaID: 10, Timestamp: 12}}

	assertDeepEqual(t, subject.Mov(op), &MovReceipt{
		Receipt: Receipt{BlockID: "block-id"},
		From:    from,
		To:      Position{ParentBlockID: "new-parent-block-id", Point: to},
	})
	if subject.ParentBlockID != "new-parent-block-id" {
		t.Errorf("parent = %q, want new-parent-block-id", subject.ParentBlockID)
	}
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
	if subject.Mov(op) != nil {
		t.Error("repeated move applied")
	}

	stale := op
	stale.Stamp = contribution.Stamp{ReplicaID: 99, Timestamp: 10}
	if subject.Mov(stale) != nil {
		t.Error("stale move applied")
	}
}

func TestBlock_Del(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	op := DelOp{Origin: remote, IsDeleted: true, Stamp: contribution.Stamp{ReplicaID: 8, Timestamp: 10}}
	assertDeepEqual(t, subject.Del(op), &DelReceipt{Receipt: Receipt{BlockID: "block-id"}, From: false, To: true})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
	if subject.Del(op) != nil {
		t.Error("repeated delete applied")
	}

	local := DelOp{Origin: Local(95), IsDeleted: false, Stamp: contribution.Stamp{ReplicaID: 8, Timestamp: 11}}
	assertDeepEqual(t, subject.Del(local), &DelReceipt{
		Receipt: Receipt{BlockID: "block-id", Version: &VersionEntry{ReplicaID: 95, Nonce: Nonce{98, 99}}},
		From:    true,
		To:      false,
	})
}

func TestBlock_Set(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	value := []any{[]any{[]any{5.0, map[string]any{"I": true}}}, "Hello"}
	op := SetOp{
		Origin: remote,
		Props: PropsDelta{
			"TYPE":         "UL",
			"DONE":         true,
			"SRC":          "foobar",
			"GLOBAL_COUNT": nil,
			"DATABASE": PropsDelta{
				"1-1": PropsDelta{"name": "aa"},
				"1-2": PropsDelta{"name": "bb"},
				"1-3": PropsDelta{"name": "cc"},
				"1-4": PropsDelta{"name": "dd"},
			},
			"DATAROW": PropsDelta{
				"1-1": PropsDelta{"value": value, "format": map[string]any{"S": true}},
			},
		},
		Stamp: contribution.Stamp{ReplicaID: 11, Timestamp: 12},
	}

	assertDeepEqual(t, subject.Set(op), &SetReceipt{
		Receipt: Receipt{BlockID: "block-id"},
		From: PropsDelta{
			"SRC":          nil,
			"GLOBAL_COUNT": true,
			"DATABASE": PropsDelta{
				"1-1": PropsDelta{"name": "a"},
				"1-2": PropsDelta{"name": "b"},
				"1-4": PropsDelta{"name": nil},
			},
			"DATAROW": PropsDelta{
				"1-1": PropsDelta{"value": nil, "format": nil},
			},
		},
		To: PropsDelta{
			"SRC":          "foobar",
			"GLOBAL_COUNT": nil,
			"DATABASE": PropsDelta{
				"1-1": PropsDelta{"name": "aa"},
				"1-2": PropsDelta{"name": "bb"},
				"1-4": PropsDelta{"name": "dd"},
			},
			"DATAROW": PropsDelta{
				"1-1": PropsDelta{"value": value, "format": map[string]any{"S": true}},
			},
		},
	})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
	assertJSON(t, subject.Props, `{
		"TYPE": [[11, 13], "CL"],
		"DONE": [null, true],
		"SRC": [[11, 12], "foobar"],
		"GLOBAL_COUNT": [[11, 12]],
		"MOV": [[9, 11]],
		"DATABASE": {
			"1-1": {"name": [[11, 12], "aa"]},
			"1-2": {"name": [[11, 12], "bb"]},
			"1-3": {"name": [[11, 13], "c"]},
			"1-4": {"name": [[11, 12], "dd"]}
		},
		"DATAROW": {
			"1-1": {
				"value": [[11, 12], [[[5, {"I": true}]], "Hello"]],
				"format": [[11, 12], {"S": true}]
			}
		}
	}`)

	if subject.Set(op) != nil {
		t.Error("repeated set reported changes")
	}
}

func TestBlock_SetNothing(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	op := SetOp{
		Origin: remote,
		Props:  PropsDelta{"DATABASE": PropsDelta{"1-3": PropsDelta{"name": "cc"}}},
		Stamp:  contribution.Stamp{ReplicaID: 11, Timestamp: 12},
	}
	if receipt := subject.Set(op); receipt != nil {
		t.Errorf("got %s, want nil", litter.Sdump(receipt))
	}
	assertJSON(t, subject, fixtureBlock)
}

func TestBlock_InsText(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	span, err := text.DecodeTextSpan(pt([3]uint32{999, 4, 2}), "bcd")
	if err != nil {
		t.Fatal(err)
	}
	receipt, err := subject.InsText(InsTextOp{Origin: remote, Span: span})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &InsTextReceipt{
		Receipt: Receipt{BlockID: "block-id"},
		Delta:   []text.INSDelta{{Index: 0, Content: span.Content()}},
	})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
}

func TestBlock_DelText(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	receipt, err := subject.DelText(DelTextOp{Origin: remote, Span: text.MustSpan(pt([3]uint32{999, 4, 2}), text.NewDELContent(5))})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &DelTextReceipt{Receipt: Receipt{BlockID: "block-id"}, Delta: []text.DELDelta{}})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
}

func TestBlock_ModText(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	span := text.MustSpan(pt([3]uint32{999, 4, 2}), text.NewMODContent("xy"))
	receipt, err := subject.ModText(ModTextOp{Origin: remote, Span: span})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &ModTextReceipt{Receipt: Receipt{BlockID: "block-id"}, Span: span})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
}

func TestBlock_FmtText(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	var content text.FMTContent
	if err := json.Unmarshal([]byte(`[5, [[5, {"B": true}]]]`), &content); err != nil {
		t.Fatal(err)
	}
	receipt, err := subject.FmtText(FmtTextOp{Origin: remote, Span: text.MustSpan(pt([3]uint32{999, 4, 2}), &content)})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &FmtTextReceipt{Receipt: Receipt{BlockID: "block-id"}})
	assertVersion(t, subject, Version{3: {5, 7}, 95: {97, 99}})
}

func TestBlock_InsTextAt(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	content := text.INSContentFrom("xyz", nil, nil)
	receipt, err := subject.InsTextAt(InsTextAtOp{Contributor: contribution.NewContributor(5, 9), Index: 0, Content: content})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &InsTextAtReceipt{
		Receipt: Receipt{BlockID: "block-id", Version: &VersionEntry{ReplicaID: 5, Nonce: Nonce{1, 3}}},
		Span:    text.MustSpan(pt([3]uint32{2147483647, 5, 1}), content),
	})
	assertVersion(t, subject, Version{3: {5, 7}, 5: {1, 3}})

	receipt, err = subject.InsTextAt(InsTextAtOp{Contributor: contribution.NewContributor(5, 9), Index: 3, Content: text.INSContentFrom("!", nil, nil)})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt.Span.LowerPoint(), pt([3]uint32{2147483647, 5, 4}))
	if got := subject.Text().String(); got != "xyz!" {
		t.Errorf("text = %q, want xyz!", got)
	}
	if got := subject.Text().Spans().Len(); got != 1 {
		t.Errorf("appended span was not merged: %d spans", got)
	}
}

func TestBlock_DelTextAt(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	contributor := contribution.NewContributor(5, 9)
	if _, err := subject.InsTextAt(InsTextAtOp{Contributor: contributor, Index: 0, Content: text.INSContentFrom("abc", nil, nil)}); err != nil {
		t.Fatal(err)
	}
	receipt, err := subject.DelTextAt(DelTextAtOp{Contributor: contributor, Index: 1, Length: 1})
	if err != nil {
		t.Fatal(err)
	}
	removed, err := text.DecodeTextSpan(pt([3]uint32{2147483647, 5, 2}), "b")
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &DelTextAtReceipt{
		Receipt: Receipt{BlockID: "block-id", Version: &VersionEntry{ReplicaID: 5, Nonce: Nonce{2, 3}}},
		Spans:   text.Spans{removed},
	})
	assertVersion(t, subject, Version{3: {5, 7}, 5: {2, 3}})

	receipt, err = subject.DelTextAt(DelTextAtOp{Contributor: contributor, Index: 10, Length: 1})
	if err != nil || receipt != nil {
		t.Errorf("deleting past the end = %v, %v, want nil", receipt, err)
	}
	assertVersion(t, subject, Version{3: {5, 7}, 5: {2, 3}})

	if _, err := subject.DelTextAt(DelTextAtOp{Contributor: contributor, Index: 1, Length: 0}); !errors.Is(err, text.ErrInvalidRange) {
		t.Errorf("empty delete err = %v, want %v", err, text.ErrInvalidRange)
	}
}

func TestBlock_FmtTextAt(t *testing.T) {
	subject := mustDecodeBlock(t, fixtureBlock)
	receipt, err := subject.FmtTextAt(FmtTextAtOp{
		Contributor: contribution.NewContributor(5, 1),
		Index:       0,
		Length:      1,
		Props:       text.PropsDelta{"B": true},
		Stamp:       contribution.Stamp{ReplicaID: 11, Timestamp: 12},
	})
	if err != nil {
		t.Fatal(err)
	}
	assertDeepEqual(t, receipt, &FmtTextAtReceipt{
		Receipt: Receipt{BlockID: "block-id", Version: &VersionEntry{ReplicaID: 5, Nonce: Nonce{1, 0}}},
		Spans:   []text.FMTSpan{},
	})
	assertVersion(t, subject, Version{3: {5, 7}, 5: {1, 0}})
}

func TestReceipt_JSON(t *testing.T) {
	receipt := &DelReceipt{
		Receipt: Receipt{BlockID: "b", Version: &VersionEntry{ReplicaID: 2, Nonce: Nonce{3, 4}}},
		From:    false,
		To:      true,
	}
	assertJSON(t, receipt, `{"blockID": "b", "version": {"replicaID": 2, "nonce": [3, 4]}, "from": false, "to": true}`)
	assertJSON(t, &SetReceipt{
		Receipt: Receipt{BlockID: "b"},
		From:    PropsDelta{"A": nil},
		To:      PropsDelta{"A": map[string]any{"x": 1.0}},
	}, `{"blockID": "b", "from": {"A": null}, "to": {"A": [{"x": 1}]}}`)
}
