// Package orderable holds the ordering primitives shared by identities,
// ranges and spans.
package orderable

// Order classifies how one ordered value relates to another.
//
// Points only produce Tagging, Less, Equal, Greater and Tagged. Ranges
// produce everything between Less and Greater. Spans produce all values
// except Tagging and Tagged.
type Order int

const (
	Splitting Order = iota
	Tagging
	Less
	Prependable
	RightOverlap
	IncludingRight
	IncludingMiddle
	IncludingLeft
	Equal
	IncludedLeft
	IncludedMiddle
	IncludedRight
	LeftOverlap
	Appendable
	Greater
	Tagged
	Splitted
)

var orderNames = [...]string{
	Splitting:       "Splitting",
	Tagging:         "Tagging",
	Less:            "Less",
	Prependable:     "Prependable",
	RightOverlap:    "RightOverlap",
	IncludingRight:  "IncludingRight",
	IncludingMiddle: "IncludingMiddle",
	IncludingLeft:   "IncludingLeft",
	Equal:           "Equal",
	IncludedLeft:    "IncludedLeft",
	IncludedMiddle:  "IncludedMiddle",
	IncludedRight:   "IncludedRight",
	LeftOverlap:     "LeftOverlap",
	Appendable:      "Appendable",
	Greater:         "Greater",
	Tagged:          "Tagged",
	Splitted:        "Splitted",
}

func (o Order) String() string {
	if o < 0 || int(o) >= len(orderNames) {
		return "Order(?)"
	}
	return orderNames[o]
}

// Including reports whether o is one of the relations where the subject
// fully contains the other range (Equal included).
func (o Order) Including() bool {
	return o == IncludingRight || o == IncludingMiddle || o == IncludingLeft || o == Equal
}

// Included reports whether the subject lies fully inside the other range
// without being equal to it.
func (o Order) Included() bool {
	return o == IncludedLeft || o == IncludedMiddle || o == IncludedRight
}
