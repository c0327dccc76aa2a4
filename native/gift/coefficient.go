package gift

import (
	"fmt"
	"math/big"
)

// applyClaim admits a raw entitlement against the pool: the payout is the raw
// amount scaled by the coefficient in force at call time. On success the
// balance is decreased and the coefficient recomputed for the next claim.
// The pool is left untouched when the balance is insufficient.
func applyClaim(pool *Pool, rawAmount *big.Int) (*big.Int, error) {
	if pool == nil {
		return nil, ErrNotInitialized
	}
	if rawAmount == nil || rawAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: claim amount must be positive", ErrInvalidInput)
	}
	payout := pool.Coefficient.MulInt(rawAmount)
	if pool.CurrentBalance.Cmp(payout) < 0 {
		return nil, ErrGiftOver
	}
	pool.CurrentBalance = new(big.Int).Sub(pool.CurrentBalance, payout)
	pool.Coefficient = nextCoefficient(pool)
	return payout, nil
}

// nextCoefficient interpolates linearly between the configured bounds:
// coefficient_down * (1 - ratio) + coefficient_up * ratio, where ratio is the
// remaining share of the pool at full 18-place precision. A drained pool
// yields coefficient_down, a full pool coefficient_up. The ratio is computed
// first, then the multiply-accumulate, so rounding matches the reference
// vectors.
func nextCoefficient(pool *Pool) Dec {
	ratio := NewDecFromRatio(pool.CurrentBalance, pool.InitialBalance)
	down := NewDecFromInt(pool.CoefficientDown)
	up := NewDecFromInt(pool.CoefficientUp)
	return OneDec().Sub(ratio).Mul(down).Add(up.Mul(ratio))
}
