package orderable

import (
	"errors"
	"testing"
)

func TestClosedRange_Intersection(t *testing.T) {
	subject := NewClosedRange(5, 3)
	target := NewClosedRange(6, 3)
	want := NewClosedRange(6, 2)

	got, err := subject.Intersection(target)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	got, err = target.Intersection(subject)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("reversed: got %v, want %v", got, want)
	}
}

func TestClosedRange_IntersectionDisjoint(t *testing.T) {
	subject := NewClosedRange(5, 3)
	target := NewClosedRange(4, 1)
	if _, err := subject.Intersection(target); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("err = %v, want ErrNoIntersection", err)
	}
	if _, err := target.Intersection(subject); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("reversed err = %v, want ErrNoIntersection", err)
	}
}

func TestClosedRange_Compare(t *testing.T) {
	subject := NewClosedRange(5, 3)
	tests := []struct {
		want  Order
		other ClosedRange
	}{
		{Less, NewClosedRange(9, 2)},
		{Prependable, NewClosedRange(8, 1)},
		{RightOverlap, NewClosedRange(7, 2)},
		{IncludingRight, NewClosedRange(7, 1)},
		{IncludingMiddle, NewClosedRange(6, 1)},
		{IncludingLeft, NewClosedRange(5, 1)},
		{Equal, NewClosedRange(5, 3)},
		{IncludedLeft, NewClosedRange(5, 5)},
		{IncludedMiddle, NewClosedRange(4, 5)},
		{IncludedRight, NewClosedRange(3, 5)},
		{LeftOverlap, NewClosedRange(4, 2)},
		{Appendable, NewClosedRange(4, 1)},
		{Greater, NewClosedRange(2, 2)},
	}
	for _, tt := range tests {
		if got := subject.Compare(tt.other); got != tt.want {
			t.Errorf("Compare(%v) = %v, want %v", tt.other, got, tt.want)
		}
	}
}

func TestOrder_String(t *testing.T) {
	if got := Splitted.String(); got != "Splitted" {
		t.Errorf("got %q, want %q", got, "Splitted")
	}
	if got := Order(99).String(); got != "Order(?)" {
		t.Errorf("got %q, want %q", got, "Order(?)")
	}
}
