package model

import (
	"fmt"
	"math/big"
)

// CloneAmount returns an independent copy; nil stays nil.
func CloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// EqualAmount compares two amounts, treating nil as distinct from zero.
func EqualAmount(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

// FormatAmount renders an amount for logs and records; nil is "".
func FormatAmount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// ParseAmount parses a base-10 integer in the chain's smallest unit.
func ParseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
