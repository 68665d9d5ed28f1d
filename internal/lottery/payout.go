package lottery

import (
	sdkmath "cosmossdk.io/math"
)

// BpsDenominator is the basis-point scale of TierShareBps.
const BpsDenominator = 10_000

func addUint32Checked(a uint32, b uint32, field string) (uint32, error) {
	if a > ^uint32(0)-b {
		return 0, ErrArithmeticOverflow.Wrapf("%s overflows uint32", field)
	}
	return a + b, nil
}

func mulUint64Checked(a uint64, b uint64, field string) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > ^uint64(0)/b {
		return 0, ErrArithmeticOverflow.Wrapf("%s overflows uint64", field)
	}
	return a * b, nil
}

// PrizeAmount is one winner's share of a tier:
//
//	pot * shareBps / 10000 / winners
//
// Integer division rounds down, so the sum over every winner of a tier never
// exceeds the tier's share of the pot.
func PrizeAmount(pot uint64, shareBps uint16, winners uint8) (uint64, error) {
	if winners == 0 {
		return 0, ErrInvalidGameState.Wrap("tier has no declared winners")
	}
	if shareBps > BpsDenominator {
		return 0, ErrInvalidParams.Wrapf("tier share %d bps exceeds %d", shareBps, BpsDenominator)
	}
	amt := sdkmath.NewIntFromUint64(pot).
		MulRaw(int64(shareBps)).
		QuoRaw(BpsDenominator).
		QuoRaw(int64(winners))
	if !amt.IsUint64() {
		return 0, ErrArithmeticOverflow.Wrapf("prize %s does not fit uint64", amt)
	}
	return amt.Uint64(), nil
}
