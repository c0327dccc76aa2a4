package gift

import (
	"math/big"
	"strings"
)

// Pool is the singleton campaign record. The coefficient always lies between
// the configured bounds for any monotonically decreasing balance.
type Pool struct {
	InitialBalance  *big.Int
	CurrentBalance  *big.Int
	CoefficientUp   *big.Int
	CoefficientDown *big.Int
	Coefficient     Dec
	Claims          uint64
	Releases        uint64
	TargetClaim     uint64
}

// Clone returns a deep copy so callers can mutate freely without touching the
// stored instance.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.InitialBalance = cloneBigInt(p.InitialBalance)
	clone.CurrentBalance = cloneBigInt(p.CurrentBalance)
	clone.CoefficientUp = cloneBigInt(p.CoefficientUp)
	clone.CoefficientDown = cloneBigInt(p.CoefficientDown)
	clone.Coefficient = DecFromMantissa(p.Coefficient.Mantissa())
	return &clone
}

// ClaimRecord fixes a claimant's payout at admission time. Created exactly
// once per normalized identity and immutable afterwards.
type ClaimRecord struct {
	Amount     *big.Int
	Multiplier Dec
}

func (c *ClaimRecord) Clone() *ClaimRecord {
	if c == nil {
		return nil
	}
	return &ClaimRecord{
		Amount:     cloneBigInt(c.Amount),
		Multiplier: DecFromMantissa(c.Multiplier.Mantissa()),
	}
}

// ReleaseRecord tracks the vesting state machine for one claimant.
// StageExpiration is a unix timestamp; zero means "never" (no pending stage
// timer). Remaining decreases monotonically to zero.
type ReleaseRecord struct {
	Beneficiary     string
	Remaining       *big.Int
	Stage           uint64
	StageExpiration int64
}

func (r *ReleaseRecord) Clone() *ReleaseRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Remaining = cloneBigInt(r.Remaining)
	return &clone
}

// Refer records a referred -> referrer edge. Each referred address has at
// most one edge; the first write wins.
type Refer struct {
	Referred string
	Referrer string
}

// Instruction is a fund-transfer order emitted to the treasury sink. The
// engine never moves tokens itself.
type Instruction struct {
	Recipient string
	Denom     string
	Amount    *big.Int
	Kind      string
}

// Instruction kinds.
const (
	PayoutKindBounty    = "bounty"
	PayoutKindGift      = "gift"
	PayoutKindReferral  = "referral"
	PayoutKindCommunity = "community_pool"
)

// NormalizeIdentity lower-cases a claiming identity. Applied consistently
// everywhere the identity is used as a key, making claims case-insensitive.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
