package ledger

import (
	"fmt"
	"math/bits"
)

func checkedAdd(a, b uint64, what string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %s", ErrArithmeticOverflow, what)
	}
	return sum, nil
}

func checkedSub(a, b uint64, what string) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %s", ErrArithmeticOverflow, what)
	}
	return diff, nil
}

// advance moves a checkpoint to now without ever moving it backwards.
func advance(checkpoint, now int64) int64 {
	if now > checkpoint {
		return now
	}
	return checkpoint
}
