package money

import "testing"

func TestRound(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{19.994, 19.99},
		{19.996, 20},
		{3.14159, 3.14},
		{0.1 + 0.2, 0.3},
		{-4.996, -5},
		{100, 100},
	}
	for _, tc := range cases {
		if got := Round(tc.in); got != tc.want {
			t.Errorf("Round(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
