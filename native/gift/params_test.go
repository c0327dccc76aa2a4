package gift

import (
	"math/big"
	"testing"
	"time"
)

func TestParamsClonePreservesUnsetFields(t *testing.T) {
	p := &Params{
		Denom:           "boot",
		TargetClaim:     2,
		InitialBalance:  big.NewInt(1000),
		CoefficientUp:   big.NewInt(20),
		CoefficientDown: big.NewInt(5),
		Coefficient:     big.NewInt(20),
	}
	clone := p.Clone()
	if clone.ClaimBounty != nil {
		t.Fatalf("unset bounty must survive Clone as nil, got %s", clone.ClaimBounty)
	}
	// The defaults still apply on the cloned copy.
	clone.Normalize()
	if clone.ClaimBounty == nil || clone.ClaimBounty.Cmp(DefaultClaimBounty) != 0 {
		t.Fatalf("normalised bounty: got %v want %s", clone.ClaimBounty, DefaultClaimBounty)
	}
	if clone.ReleaseStages != DefaultReleaseStages {
		t.Fatalf("normalised stages: got %d", clone.ReleaseStages)
	}
	if clone.ReleasePeriod != DefaultReleasePeriod {
		t.Fatalf("normalised period: got %s", clone.ReleasePeriod)
	}
	if clone.PrimaryShareBps != DefaultPrimaryShareBps {
		t.Fatalf("normalised share: got %d", clone.PrimaryShareBps)
	}
}

func TestParamsCloneIsDeep(t *testing.T) {
	p := &Params{
		Denom:           "boot",
		TargetClaim:     2,
		InitialBalance:  big.NewInt(1000),
		CoefficientUp:   big.NewInt(20),
		CoefficientDown: big.NewInt(5),
		Coefficient:     big.NewInt(20),
		ClaimBounty:     big.NewInt(77),
		ReleasePeriod:   time.Hour,
	}
	clone := p.Clone()
	clone.InitialBalance.SetInt64(1)
	clone.ClaimBounty.SetInt64(1)
	if p.InitialBalance.Cmp(big.NewInt(1000)) != 0 || p.ClaimBounty.Cmp(big.NewInt(77)) != 0 {
		t.Fatal("mutating the clone leaked into the original")
	}
}

func TestNormalizeKeepsExplicitBounty(t *testing.T) {
	p := (&Params{ClaimBounty: big.NewInt(0)}).Normalize()
	if p.ClaimBounty.Sign() != 0 {
		t.Fatalf("explicit zero bounty overwritten: %s", p.ClaimBounty)
	}
}
