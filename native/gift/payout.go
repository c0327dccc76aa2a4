package gift

import (
	"math/big"
)

// composePayout splits a release amount into the primary beneficiary payout
// plus referral distributions, or a community-pool fallback when the
// beneficiary has no referral chain. The instructions always sum exactly to
// amount: the residue of the equal referral split is attributed to the
// primary payout.
func composePayout(amount *big.Int, denom, beneficiary string, chain []string, communityPool string, primaryShareBps uint32) []Instruction {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	primary := NewDecFromRatio(new(big.Int).SetUint64(uint64(primaryShareBps)), big.NewInt(10_000)).MulInt(amount)
	remainder := new(big.Int).Sub(amount, primary)

	out := make([]Instruction, 0, 2+len(chain))
	referrals := make([]Instruction, 0, len(chain))
	if len(chain) > 0 && remainder.Sign() > 0 {
		share := new(big.Int).Quo(remainder, big.NewInt(int64(len(chain))))
		if share.Sign() > 0 {
			for _, ancestor := range chain {
				referrals = append(referrals, Instruction{
					Recipient: ancestor,
					Denom:     denom,
					Amount:    new(big.Int).Set(share),
					Kind:      PayoutKindReferral,
				})
			}
			distributed := new(big.Int).Mul(share, big.NewInt(int64(len(chain))))
			primary = primary.Add(primary, new(big.Int).Sub(remainder, distributed))
		} else {
			// Too small to split; the whole remainder rides with the
			// primary payout.
			primary = primary.Add(primary, remainder)
		}
		remainder = nil
	}

	if primary.Sign() > 0 {
		out = append(out, Instruction{
			Recipient: beneficiary,
			Denom:     denom,
			Amount:    primary,
			Kind:      PayoutKindGift,
		})
	}
	out = append(out, referrals...)
	if remainder != nil && remainder.Sign() > 0 {
		out = append(out, Instruction{
			Recipient: communityPool,
			Denom:     denom,
			Amount:    remainder,
			Kind:      PayoutKindCommunity,
		})
	}
	return out
}

// sumInstructions is a helper for invariants and tests.
func sumInstructions(instructions []Instruction) *big.Int {
	total := big.NewInt(0)
	for _, in := range instructions {
		if in.Amount != nil {
			total.Add(total, in.Amount)
		}
	}
	return total
}
