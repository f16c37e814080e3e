package model

import "math/big"

// AccountBalance is the balance breakdown of an account.
type AccountBalance struct {
	Free     *big.Int
	Reserved *big.Int
	Frozen   *big.Int
	Locked   *big.Int
}

// Transferable is free minus frozen minus reserved, floored at zero.
func (b AccountBalance) Transferable() *big.Int {
	out := CloneAmount(b.Free)
	if out == nil {
		return big.NewInt(0)
	}
	if b.Frozen != nil {
		out.Sub(out, b.Frozen)
	}
	if b.Reserved != nil {
		out.Sub(out, b.Reserved)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

// Available is free minus the amount locked in staking, floored at zero.
func (b AccountBalance) Available() *big.Int {
	out := CloneAmount(b.Free)
	if out == nil {
		return big.NewInt(0)
	}
	if b.Locked != nil {
		out.Sub(out, b.Locked)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}
