// Package rate implements exact, non-floating-point BTC/DAI exchange
// rate arithmetic, generalizing the string-based fixed-point conversions
// in pkg/helpers/amount.go into a first-class rate type so the maker's
// profitability checks (invariant P5) never lose precision to float64.
package rate

import (
	"fmt"
	"math/big"
)

// BtcDecimals and DaiDecimals are the smallest-unit scale of each asset.
const (
	BtcDecimals = 8
	DaiDecimals = 18
)

// Rate is DAI per BTC, held as an exact rational number.
type Rate struct {
	r *big.Rat
}

// New builds a rate from a DAI-per-BTC decimal string, e.g. "42000.50".
func New(decimal string) (Rate, error) {
	r, ok := new(big.Rat).SetString(decimal)
	if !ok {
		return Rate{}, fmt.Errorf("rate: invalid decimal %q", decimal)
	}
	if r.Sign() <= 0 {
		return Rate{}, fmt.Errorf("rate: must be positive, got %q", decimal)
	}
	return Rate{r: r}, nil
}

// FromAmounts derives the rate implied by trading satAmount sats for
// weiAmount wei.
func FromAmounts(satAmount, weiAmount *big.Int) (Rate, error) {
	if satAmount == nil || satAmount.Sign() <= 0 {
		return Rate{}, fmt.Errorf("rate: satAmount must be positive")
	}
	if weiAmount == nil || weiAmount.Sign() <= 0 {
		return Rate{}, fmt.Errorf("rate: weiAmount must be positive")
	}
	// dai_per_btc = (wei / 10^18) / (sats / 10^8) = wei / (sats * 10^10)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(DaiDecimals-BtcDecimals), nil)
	num := new(big.Int).Mul(weiAmount, big.NewInt(1))
	den := new(big.Int).Mul(satAmount, scale)
	return Rate{r: new(big.Rat).SetFrac(num, den)}, nil
}

// DaiForBtc converts a satoshi amount to the equivalent DAI wei amount at
// this rate, truncating (never rounding up) any remainder.
func (rt Rate) DaiForBtc(sats *big.Int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(DaiDecimals-BtcDecimals), nil)
	num := new(big.Rat).Mul(rt.r, new(big.Rat).SetInt(new(big.Int).Mul(sats, scale)))
	q := new(big.Int).Quo(num.Num(), num.Denom())
	return q
}

// BtcForDai converts a wei amount to the equivalent satoshi amount at this
// rate, truncating any remainder.
func (rt Rate) BtcForDai(wei *big.Int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(DaiDecimals-BtcDecimals), nil)
	weiRat := new(big.Rat).SetInt(wei)
	sats := new(big.Rat).Quo(weiRat, rt.r)
	sats.Quo(sats, new(big.Rat).SetInt(scale))
	q := new(big.Int).Quo(sats.Num(), sats.Denom())
	return q
}

// Cmp compares two rates: -1 if rt < other, 0 if equal, 1 if greater.
func (rt Rate) Cmp(other Rate) int { return rt.r.Cmp(other.r) }

// WorseThan reports whether rt is worse than minAcceptable for the given
// position: for a sell (we give BTC, want DAI), worse means lower; for a
// buy (we give DAI, want BTC), worse means higher.
func (rt Rate) WorseThan(minAcceptable Rate, sell bool) bool {
	if sell {
		return rt.Cmp(minAcceptable) < 0
	}
	return rt.Cmp(minAcceptable) > 0
}

func (rt Rate) String() string { return rt.r.FloatString(DaiDecimals) }
