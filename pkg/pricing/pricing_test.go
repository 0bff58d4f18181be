package pricing

import (
	"testing"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{
			name: "roundsDown",
			in:   1.1312,
			want: 1.13,
		},
		{
			name: "roundsUp",
			in:   1.135,
			want: 1.14,
		},
		{
			name: "zero",
			in:   0,
			want: 0,
		},
		{
			name: "alreadyTwoDecimals",
			in:   5.75,
			want: 5.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round2(tt.in); got != tt.want {
				t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubtotalTaxTotal(t *testing.T) {
	// One 5.75 latte plus two 3.50 drips: 5.75 + 7.00 = 12.75.
	lines := []float64{
		LineTotal(5.75, 1),
		LineTotal(3.50, 2),
	}

	subtotal := Subtotal(lines)
	if subtotal != 12.75 {
		t.Errorf("Subtotal() = %v, want 12.75", subtotal)
	}

	tax := Tax(subtotal)
	if tax != 1.13 {
		t.Errorf("Tax(12.75) = %v, want 1.13", tax)
	}

	total := Total(subtotal)
	if total != 13.88 {
		t.Errorf("Total(12.75) = %v, want 13.88", total)
	}
}

func TestTaxDerivesFromRoundedSubtotal(t *testing.T) {
	// 3 items at 1.333 each: raw sum 3.999 rounds to 4.00 before tax.
	subtotal := Subtotal([]float64{1.333, 1.333, 1.333})
	if subtotal != 4.00 {
		t.Fatalf("Subtotal() = %v, want 4.00", subtotal)
	}

	if got := Tax(subtotal); got != 0.36 {
		t.Errorf("Tax(4.00) = %v, want 0.36", got)
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(4.25, 3); got != 12.75 {
		t.Errorf("LineTotal(4.25, 3) = %v, want 12.75", got)
	}
}
