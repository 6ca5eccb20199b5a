package orderable

import (
	"errors"
	"fmt"
)

// ErrNoIntersection is returned when two ranges or spans share no element.
var ErrNoIntersection = errors.New("no-intersection")

// ClosedRange is the integer interval [Lower, Lower+Length-1].
type ClosedRange struct {
	Lower  int
	Length int
}

func NewClosedRange(lower, length int) ClosedRange {
	return ClosedRange{Lower: lower, Length: length}
}

// Upper is the last element of the range.
func (r ClosedRange) Upper() int {
	return r.Lower + r.Length - 1
}

func (r ClosedRange) Intersection(other ClosedRange) (ClosedRange, error) {
	if r.Upper() < other.Lower || other.Upper() < r.Lower {
		return ClosedRange{}, ErrNoIntersection
	}
	lower := max(r.Lower, other.Lower)
	return ClosedRange{Lower: lower, Length: min(r.Upper(), other.Upper()) - lower + 1}, nil
}

// Compare classifies other relative to r. Directional names describe r:
// IncludingLeft means r contains other and they share their lower bound.
func (r ClosedRange) Compare(other ClosedRange) Order {
	thisUpper := r.Upper()
	otherUpper := other.Upper()

	if thisUpper < other.Lower {
		if thisUpper+1 == other.Lower {
			return Prependable
		}
		return Less
	}
	if otherUpper < r.Lower {
		if otherUpper+1 == r.Lower {
			return Appendable
		}
		return Greater
	}

	if r.Lower == other.Lower {
		switch {
		case thisUpper == otherUpper:
			return Equal
		case thisUpper < otherUpper:
			return IncludedLeft
		default:
			return IncludingLeft
		}
	}
	if r.Lower < other.Lower {
		switch {
		case thisUpper == otherUpper:
			return IncludingRight
		case otherUpper < thisUpper:
			return IncludingMiddle
		default:
			return RightOverlap
		}
	}
	switch {
	case thisUpper == otherUpper:
		return IncludedRight
	case thisUpper < otherUpper:
		return IncludedMiddle
	default:
		return LeftOverlap
	}
}

func (r ClosedRange) String() string {
	return fmt.Sprintf("[%d..%d]", r.Lower, r.Upper())
}
