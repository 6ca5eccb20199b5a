package text

import (
	"reflect"
	"testing"

	"github.com/sanity-io/litter"

	"github.com/alimasry/go-collab-blocks/contribution"
	"github.com/alimasry/go-collab-blocks/orderable"
	"github.com/alimasry/go-collab-blocks/point"
)

func pt(tags ...[3]uint32) point.Point {
	return point.MustDecode(point.Data(tags))
}

func stampOf(replicaID uint32, timestamp int64) *contribution.Stamp {
	return &contribution.Stamp{ReplicaID: replicaID, Timestamp: timestamp}
}

func textSpan(t *testing.T, p point.Point, s string) INSSpan {
	t.Helper()
	span, err := DecodeTextSpan(p, s)
	if err != nil {
		t.Fatalf("DecodeTextSpan(%v, %q): %v", p, s, err)
	}
	return span
}

func delSpan(p point.Point, length int) DELSpan {
	return MustSpan(p, NewDELContent(length))
}

// Spans that relate to orderCases[orderable.Equal] by their key.
var orderCases = map[orderable.Order]struct {
	point point.Point
	text  string
}{
	orderable.Splitted:        {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 5}, [3]uint32{8, 8, 8}), "ghi"},
	orderable.Less:            {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 9}), "89a"},
	orderable.Prependable:     {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 8}), "789"},
	orderable.RightOverlap:    {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 7}), "678"},
	orderable.IncludingRight:  {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 7}), "6"},
	orderable.IncludingMiddle: {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 6}), "5"},
	orderable.IncludingLeft:   {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 5}), "4"},
	orderable.Equal:           {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 5}), "456"},
	orderable.IncludedLeft:    {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 5}), "4567"},
	orderable.IncludedMiddle:  {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 4}), "34567"},
	orderable.IncludedRight:   {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 4}), "3456"},
	orderable.LeftOverlap:     {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 3}), "234"},
	orderable.Appendable:      {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 2}), "123"},
	orderable.Greater:         {pt([3]uint32{1, 1, 1}, [3]uint32{5, 5, 1}), "012"},
	orderable.Splitting:       {pt([3]uint32{1, 1, 1}), "jkl"},
}

func caseSpan(t *testing.T, order orderable.Order) INSSpan {
	t.Helper()
	c := orderCases[order]
	return textSpan(t, c.point, c.text)
}

func caseNode(t *testing.T, order orderable.Order) *TextNode {
	t.Helper()
	return NewTextNode(caseSpan(t, order), nil, nil)
}

var testProps = Props{"FCOL": "red"}

var testStamp = contribution.Stamp{ReplicaID: 5, Timestamp: 9}

func testAttributes(length int) Attributes {
	stamp := testStamp
	return Attributes{{Length: length, Props: testProps.clone(), Stamp: &stamp}}
}

func testFMTSpan(p point.Point, length int) FMTSpan {
	return MustSpan(p, NewFMTContent(length, testAttributes(length)))
}

func assertDeepEqual(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %s, want %s", litter.Sdump(got), litter.Sdump(want))
	}
}

func textOf(n *TextNode) string {
	if n == nil {
		return "<nil>"
	}
	return n.span.Content().TextWithMetaPlaceholder()
}
