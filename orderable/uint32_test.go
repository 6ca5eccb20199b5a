package orderable

import (
	"errors"
	"testing"
)

func TestCompare(t *testing.T) {
	if got := Compare(4, 5); got != Less {
		t.Errorf("Compare(4, 5) = %v, want Less", got)
	}
	if got := Compare(5, 5); got != Equal {
		t.Errorf("Compare(5, 5) = %v, want Equal", got)
	}
	if got := Compare(6, 5); got != Greater {
		t.Errorf("Compare(6, 5) = %v, want Greater", got)
	}
}

func TestConstants(t *testing.T) {
	if Uint32MIN != 0 || Uint32MID != 2147483647 || Uint32MAX != 4294967295 {
		t.Errorf("unexpected constants %d %d %d", Uint32MIN, Uint32MID, Uint32MAX)
	}
}

func TestValidated(t *testing.T) {
	tests := []struct {
		n     int64
		valid bool
	}{
		{int64(Uint32MIN) - 1, false},
		{int64(Uint32MIN), true},
		{int64(Uint32MAX), true},
		{int64(Uint32MAX) + 1, false},
	}
	for _, tt := range tests {
		_, err := Validated(tt.n)
		if tt.valid && err != nil {
			t.Errorf("Validated(%d) unexpected error: %v", tt.n, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidUint32) {
			t.Errorf("Validated(%d) err = %v, want ErrInvalidUint32", tt.n, err)
		}
	}
}
