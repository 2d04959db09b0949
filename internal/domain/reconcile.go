package domain

import (
	"math/big"
	"strings"
)

// ParseWei decodes a decimal-string integer as served by the off-chain
// indexer. The decoder is total: empty, malformed, or negative input
// decodes to zero so that a bad payload can never throw inside the
// refresh path.
func ParseWei(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return new(big.Int)
	}
	return v
}

// Reconcile merges the on-chain snapshot and the optional off-chain one
// into the position the user sees.
//
// Precedence is all-or-nothing: a present off-chain snapshot is
// authoritative for every field; an absent one (nil) yields the on-chain
// values. The two sides are never blended for the same field.
//
// On the on-chain side, lossAmount additionally gates on CachedLoss.Valid:
// an invalid cache means the loss is unknown and must be shown as zero,
// whatever number the cache still holds.
func Reconcile(onchain PositionSnapshot, loss CachedLoss, holdingValue *big.Int, off *OffchainSnapshot) EffectivePosition {
	if off != nil {
		return EffectivePosition{
			CostBasis:    ParseWei(off.CostBasis),
			SoldValue:    ParseWei(off.SoldValue),
			HoldingValue: ParseWei(off.CurrentHoldingValue),
			LossAmount:   ParseWei(off.LossAmount),
			Source:       SourceOffchain,
		}
	}

	effLoss := new(big.Int)
	if loss.Valid && loss.Loss != nil {
		effLoss.Set(loss.Loss)
	}

	return EffectivePosition{
		CostBasis:    orZero(onchain.CostBasis),
		SoldValue:    orZero(onchain.SoldValue),
		HoldingValue: orZero(holdingValue),
		LossAmount:   effLoss,
		Source:       SourceChain,
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
