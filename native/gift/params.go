package gift

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Defaults mirroring the production campaign.
const (
	// DefaultReleaseStages is the number of timed stages after the initial
	// 10% unlock.
	DefaultReleaseStages = 9
	// DefaultReleasePeriod gates consecutive stage releases.
	DefaultReleasePeriod = 24 * time.Hour
	// DefaultPrimaryShareBps is the share of every release paid directly to
	// the beneficiary; the remainder feeds the referral chain.
	DefaultPrimaryShareBps = 8000
	// PayoutChainDepth bounds the referral chain walked per release.
	PayoutChainDepth = 4
	// DefaultRefDepth bounds referral chain queries when no depth is given.
	DefaultRefDepth = 3
	// DefaultAllRefsLimit and DefaultReferredLimit cap enumeration pages.
	DefaultAllRefsLimit  = 100
	DefaultReferredLimit = 50
)

// DefaultClaimBounty is the fixed amount carved out of every claim and paid
// immediately to cover the claimant's first transaction.
var DefaultClaimBounty = big.NewInt(100000)

// Params configures a campaign. Owner, Treasury and CommunityPool are bech32
// account addresses; amounts are base denom units.
type Params struct {
	Owner           string
	Treasury        string
	CommunityPool   string
	Passport        string
	Denom           string
	TargetClaim     uint64
	InitialBalance  *big.Int
	CoefficientUp   *big.Int
	CoefficientDown *big.Int
	Coefficient     *big.Int
	ClaimBounty     *big.Int
	ReleaseStages   uint64
	ReleasePeriod   time.Duration
	PrimaryShareBps uint32
}

// Normalize fills unset optional fields with defaults and trims addresses.
func (p *Params) Normalize() *Params {
	if p == nil {
		return nil
	}
	p.Owner = strings.TrimSpace(p.Owner)
	p.Treasury = strings.TrimSpace(p.Treasury)
	p.CommunityPool = strings.TrimSpace(p.CommunityPool)
	p.Passport = strings.TrimSpace(p.Passport)
	p.Denom = strings.TrimSpace(p.Denom)
	if p.ClaimBounty == nil {
		p.ClaimBounty = new(big.Int).Set(DefaultClaimBounty)
	}
	if p.ReleaseStages == 0 {
		p.ReleaseStages = DefaultReleaseStages
	}
	if p.ReleasePeriod <= 0 {
		p.ReleasePeriod = DefaultReleasePeriod
	}
	if p.PrimaryShareBps == 0 {
		p.PrimaryShareBps = DefaultPrimaryShareBps
	}
	return p
}

// Validate rejects campaigns that could never operate correctly.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidInput)
	}
	if p.Denom == "" {
		return fmt.Errorf("%w: denom required", ErrInvalidInput)
	}
	if p.InitialBalance == nil || p.InitialBalance.Sign() <= 0 {
		return fmt.Errorf("%w: initial balance must be positive", ErrInvalidInput)
	}
	if p.CoefficientUp == nil || p.CoefficientDown == nil {
		return fmt.Errorf("%w: coefficient bounds required", ErrInvalidInput)
	}
	if p.CoefficientUp.Sign() < 0 || p.CoefficientDown.Sign() < 0 {
		return fmt.Errorf("%w: coefficient bounds must be non-negative", ErrInvalidInput)
	}
	if p.Coefficient == nil {
		return fmt.Errorf("%w: initial coefficient required", ErrInvalidInput)
	}
	if p.TargetClaim == 0 {
		return fmt.Errorf("%w: target claim must be positive", ErrInvalidInput)
	}
	if p.ClaimBounty != nil && p.ClaimBounty.Sign() < 0 {
		return fmt.Errorf("%w: claim bounty must be non-negative", ErrInvalidInput)
	}
	if p.PrimaryShareBps > 10_000 {
		return fmt.Errorf("%w: primary share bps out of range", ErrInvalidInput)
	}
	if p.CommunityPool == "" {
		return fmt.Errorf("%w: community pool address required", ErrInvalidInput)
	}
	return nil
}

// Clone returns a deep copy of the params. Unset amounts stay nil so a later
// Normalize still applies the defaults.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	clone.InitialBalance = copyBigInt(p.InitialBalance)
	clone.CoefficientUp = copyBigInt(p.CoefficientUp)
	clone.CoefficientDown = copyBigInt(p.CoefficientDown)
	clone.Coefficient = copyBigInt(p.Coefficient)
	clone.ClaimBounty = copyBigInt(p.ClaimBounty)
	return &clone
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
