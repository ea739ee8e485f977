// Package rewards implements the checkpointed reward formula shared by every
// ledger operation.
package rewards

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// RateScale is the fixed-point denominator of a pool reward rate (9 decimals).
// Stored rates and existing deployments depend on this exact value.
const RateScale uint64 = 1_000_000_000

// SecondsPerYear is the year length used for APY conversion (365.25 days).
const SecondsPerYear = 31_557_600

// intermediateBits is the width the reward product must fit in before division.
const intermediateBits = 128

// ErrOverflow is returned when the reward product or its result does not fit.
var ErrOverflow = errors.New("reward arithmetic overflow")

// Settle returns the reward earned by stakedAmount between checkpoint and now:
//
//	floor(stakedAmount * (now - checkpoint) * rate / RateScale)
//
// Nothing is earned with an empty stake or a non-positive elapsed interval.
func Settle(stakedAmount uint64, now, checkpoint int64, rate uint64) (uint64, error) {
	if stakedAmount == 0 {
		return 0, nil
	}

	if now <= checkpoint {
		return 0, nil
	}
	// unsigned difference is exact for any now > checkpoint
	elapsed := uint64(now) - uint64(checkpoint)

	// amount * elapsed always fits in 128 bits; the rate factor may not
	product := sdkmath.NewUint(stakedAmount).MulUint64(elapsed).MulUint64(rate)
	if product.BigInt().BitLen() > intermediateBits {
		return 0, fmt.Errorf("%w: amount * elapsed * rate", ErrOverflow)
	}

	reward := product.QuoUint64(RateScale).BigInt()
	if !reward.IsUint64() {
		return 0, fmt.Errorf("%w: reward exceeds 64 bits", ErrOverflow)
	}
	return reward.Uint64(), nil
}

// Project returns the reward a position would earn over the given number of
// seconds at the pool rate. Used for previews; it never mutates anything.
func Project(stakedAmount uint64, seconds int64, rate uint64) (uint64, error) {
	return Settle(stakedAmount, seconds, 0, rate)
}

// RateFromAPY converts an annual percentage yield into a scaled per-second rate.
// The result is floored; negative or non-finite inputs give 0.
func RateFromAPY(apyPercent float64) uint64 {
	if apyPercent <= 0 || math.IsNaN(apyPercent) || math.IsInf(apyPercent, 0) {
		return 0
	}
	perSecond := apyPercent / 100 / SecondsPerYear
	scaled := math.Floor(perSecond * float64(RateScale))
	if scaled >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(scaled)
}

// APYFromRate converts a scaled per-second rate back into an APY percentage.
func APYFromRate(rate uint64) float64 {
	perSecond := float64(rate) / float64(RateScale)
	return perSecond * SecondsPerYear * 100
}

// Runway returns how many whole seconds balance covers accrual on
// stakedAmount at rate, capped at math.MaxInt64. It returns -1 when nothing
// accrues.
func Runway(balance, stakedAmount, rate uint64) int64 {
	if stakedAmount == 0 || rate == 0 {
		return -1
	}
	perSecond := sdkmath.NewUint(stakedAmount).MulUint64(rate)
	seconds := sdkmath.NewUint(balance).MulUint64(RateScale).Quo(perSecond).BigInt()
	if !seconds.IsInt64() {
		return math.MaxInt64
	}
	return seconds.Int64()
}
