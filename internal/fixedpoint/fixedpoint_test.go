package fixedpoint

import (
	"math"
	"testing"
)

func TestFromProbRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		p    float64
		want int64
	}{
		{0, 0},
		{1, Scale},
		{0.5, 500_000},
		{0.0000005, 1}, // exactly half a unit rounds up
		{0.0000004, 0},
		{0.3, 300_000},
		{0.123456, 123_456},
		{0.9999999, Scale},
	}
	for _, c := range cases {
		if got := FromProb(c.p); got != c.want {
			t.Fatalf("FromProb(%g) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestFromProbClampsFloatingError(t *testing.T) {
	if got := FromProb(1.0000001); got != Scale {
		t.Fatalf("FromProb above 1 = %d, want %d", got, int64(Scale))
	}
	if got := FromProb(-0.0000001); got != 0 {
		t.Fatalf("FromProb below 0 = %d, want 0", got)
	}
}

func TestRoundTripWithinOneUnit(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000 * 0.999 // spread across [0, 0.999]
		back := ToProb(FromProb(p))
		if math.Abs(back-p) > 1.0/Scale {
			t.Fatalf("round trip of %g drifted to %g", p, back)
		}
	}
}
