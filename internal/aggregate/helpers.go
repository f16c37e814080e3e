package aggregate

import (
	"math/big"

	"stakingScope/internal/model"
)

const ratioScale = 18

func addAmount(sum *big.Int, v *big.Int) *big.Int {
	if v == nil {
		return sum
	}
	return sum.Add(sum, v)
}

// computeShare renders part/whole as a fixed-point decimal. Empty when either
// side is unknown or the whole is zero.
func computeShare(part *big.Int, whole *big.Int) string {
	if part == nil || whole == nil || whole.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(part, whole)
	return rat.FloatString(ratioScale)
}

func unclaimedCount(current model.EraIndex, earliest model.EraIndex) uint32 {
	if current <= earliest {
		return 0
	}
	return uint32(current - earliest)
}

func equalPtr[T interface{ Equal(T) bool }](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return (*a).Equal(*b)
}
