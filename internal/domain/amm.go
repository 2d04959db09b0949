package domain

// amm.go — constant-product swap math for the protocol's V2-style pool.
//
// All arithmetic is math/big: reserves are uint256-sized and the
// intermediate products (amountIn*997*reserveOut) overflow any fixed-width
// integer long before the inputs look unusual. Both functions are total:
// any degenerate input yields zero, never a division by zero or a negative
// amount.

import "math/big"

var (
	feeNum = big.NewInt(997) // 0.3% swap fee, Uniswap-V2 convention
	feeDen = big.NewInt(1000)

	// Fixed 1% safety margin on the inverse quote. Absorbs reserve drift
	// between quote time and execution time.
	marginNum = big.NewInt(101)
	marginDen = big.NewInt(100)
)

// AmountOut returns the pool output for amountIn given the current
// reserves: floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)).
// Returns zero when amountIn or either reserve is nil or non-positive.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return new(big.Int)
	}
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}

	inWithFee := new(big.Int).Mul(amountIn, feeNum)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDen)
	denominator.Add(denominator, inWithFee)

	return numerator.Div(numerator, denominator)
}

// MinAmountIn inverts AmountOut: the smallest input that still clears
// minValueOut after the fee, inflated by the 1% margin. Returns zero when
// any input is non-positive or minValueOut is not strictly below
// reserveOut (no input can extract the whole reserve).
func MinAmountIn(minValueOut, reserveIn, reserveOut *big.Int) *big.Int {
	if minValueOut == nil || reserveIn == nil || reserveOut == nil {
		return new(big.Int)
	}
	if minValueOut.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	if minValueOut.Cmp(reserveOut) >= 0 {
		return new(big.Int)
	}

	// amountIn = ceil(reserveIn*minValueOut*1000 / ((reserveOut-minValueOut)*997))
	numerator := new(big.Int).Mul(reserveIn, minValueOut)
	numerator.Mul(numerator, feeDen)
	denominator := new(big.Int).Sub(reserveOut, minValueOut)
	denominator.Mul(denominator, feeNum)

	amountIn := ceilDiv(numerator, denominator)

	// Round the margin up as well; under-shooting the inverse defeats it.
	amountIn.Mul(amountIn, marginNum)
	return ceilDiv(amountIn, marginDen)
}

// ceilDiv returns ceil(num/den) for positive operands.
func ceilDiv(num, den *big.Int) *big.Int {
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}
