package rewards

import (
	"errors"
	"math"
	"testing"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name       string
		staked     uint64
		now        int64
		checkpoint int64
		rate       uint64
		want       uint64
	}{
		{name: "nothing staked", staked: 0, now: 1000, checkpoint: 0, rate: RateScale, want: 0},
		{name: "same timestamp", staked: 1000, now: 10, checkpoint: 10, rate: RateScale, want: 0},
		{name: "checkpoint in the future", staked: 1000, now: 10, checkpoint: 20, rate: RateScale, want: 0},
		{name: "unit rate", staked: 1000, now: 10, checkpoint: 0, rate: RateScale, want: 10000},
		{name: "zero rate", staked: 1000, now: 10, checkpoint: 0, rate: 0, want: 0},
		{name: "fractional rate floors", staked: 3, now: 1, checkpoint: 0, rate: 500_000_000, want: 1},
		{name: "below one unit floors to zero", staked: 1, now: 1, checkpoint: 0, rate: 999_999_999, want: 0},
		{name: "negative timestamps", staked: 100, now: -10, checkpoint: -20, rate: RateScale, want: 1000},
		{name: "10% APY one year", staked: 500_000_000_000, now: SecondsPerYear, checkpoint: 0, rate: 3, want: 47_336_400_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Settle(tt.staked, tt.now, tt.checkpoint, tt.rate)
			if err != nil {
				t.Fatalf("Settle: %v", err)
			}
			if got != tt.want {
				t.Errorf("Settle() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSettle_ZeroStakeIgnoresInputs(t *testing.T) {
	for _, rate := range []uint64{0, 1, RateScale, math.MaxUint64} {
		got, err := Settle(0, math.MaxInt64, math.MinInt64, rate)
		if err != nil || got != 0 {
			t.Errorf("rate %d: got (%d, %v), want (0, nil)", rate, got, err)
		}
	}
}

func TestSettle_Overflow(t *testing.T) {
	tests := []struct {
		name       string
		staked     uint64
		now        int64
		checkpoint int64
		rate       uint64
	}{
		// product exceeds 128 bits before division
		{name: "intermediate", staked: math.MaxUint64, now: math.MaxInt64, checkpoint: 0, rate: math.MaxUint64},
		// product fits but the quotient does not fit in 64 bits
		{name: "result", staked: math.MaxUint64, now: 2, checkpoint: 0, rate: RateScale},
		{name: "full int64 span", staked: math.MaxUint64, now: math.MaxInt64, checkpoint: math.MinInt64, rate: RateScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Settle(tt.staked, tt.now, tt.checkpoint, tt.rate)
			if !errors.Is(err, ErrOverflow) {
				t.Errorf("expected ErrOverflow, got %v", err)
			}
		})
	}
}

func TestSettle_LargeButRepresentable(t *testing.T) {
	// 2^64-1 staked for one second at the unit rate is exactly the stake
	got, err := Settle(math.MaxUint64, 1, 0, RateScale)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got != math.MaxUint64 {
		t.Errorf("got %d, want %d", got, uint64(math.MaxUint64))
	}
}

func TestSettle_MonotonicInNow(t *testing.T) {
	const (
		staked     = 123_456_789
		checkpoint = 1_700_000_000
		rate       = 317
	)

	var prev uint64
	for now := int64(checkpoint - 5); now < checkpoint+5000; now += 7 {
		got, err := Settle(staked, now, checkpoint, rate)
		if err != nil {
			t.Fatalf("Settle at %d: %v", now, err)
		}
		if got < prev {
			t.Fatalf("reward decreased at now=%d: %d < %d", now, got, prev)
		}
		prev = got
	}
}

func TestProject(t *testing.T) {
	got, err := Project(1000, 10, RateScale)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if got != 10000 {
		t.Errorf("Project() = %d, want 10000", got)
	}
}

func TestRateFromAPY(t *testing.T) {
	tests := []struct {
		apy  float64
		want uint64
	}{
		{apy: 10, want: 3},
		{apy: 100, want: 31},
		{apy: 0, want: 0},
		{apy: -5, want: 0},
		{apy: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		if got := RateFromAPY(tt.apy); got != tt.want {
			t.Errorf("RateFromAPY(%v) = %d, want %d", tt.apy, got, tt.want)
		}
	}
}

func TestAPYFromRate(t *testing.T) {
	got := APYFromRate(31)
	// 31e-9 * 31_557_600 * 100
	want := 97.82856
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("APYFromRate(31) = %f, want %f", got, want)
	}
}

func TestRunway(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		staked  uint64
		rate    uint64
		want    int64
	}{
		{name: "nothing staked", balance: 100, staked: 0, rate: RateScale, want: -1},
		{name: "zero rate", balance: 100, staked: 10, rate: 0, want: -1},
		{name: "exact", balance: 10_000, staked: 500, rate: RateScale, want: 20},
		{name: "floored", balance: 10_001, staked: 500, rate: RateScale, want: 20},
		{name: "fractional rate", balance: 1, staked: 1, rate: 1, want: int64(RateScale)},
		{name: "empty vault", balance: 0, staked: 1, rate: 1, want: 0},
		{name: "capped", balance: math.MaxUint64, staked: 1, rate: 1, want: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Runway(tt.balance, tt.staked, tt.rate); got != tt.want {
				t.Errorf("Runway(%d, %d, %d) = %d, want %d", tt.balance, tt.staked, tt.rate, got, tt.want)
			}
		})
	}
}
