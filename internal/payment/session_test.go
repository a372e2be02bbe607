package payment

import "testing"

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		price float64
		want  int64
	}{
		{0, 0},
		{3.5, 350},
		{24.99, 2499},
		{19.999, 2000},
		// Classic float representation trap: 0.1 + 0.2
		{0.30000000000000004, 30},
		{1234.56, 123456},
	}

	for _, tc := range cases {
		if got := MinorUnits(tc.price); got != tc.want {
			t.Errorf("MinorUnits(%v) = %d, want %d", tc.price, got, tc.want)
		}
	}
}
