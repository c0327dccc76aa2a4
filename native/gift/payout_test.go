package gift

import (
	"math/big"
	"testing"
)

const testDenom = "boot"

func TestComposePayoutNoChain(t *testing.T) {
	out := composePayout(big.NewInt(1000), testDenom, "cyber1beneficiary", nil, "cyber1community", 8000)
	if len(out) != 2 {
		t.Fatalf("instructions: got %d want 2", len(out))
	}
	if out[0].Kind != PayoutKindGift || out[0].Amount.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("primary: %+v", out[0])
	}
	if out[1].Kind != PayoutKindCommunity || out[1].Recipient != "cyber1community" || out[1].Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("community fallback: %+v", out[1])
	}
	if sumInstructions(out).Cmp(big.NewInt(1000)) != 0 {
		t.Fatal("instructions must sum to the release amount")
	}
}

func TestComposePayoutChainSplit(t *testing.T) {
	chain := []string{"cyber1ref1", "cyber1ref2", "cyber1ref3", "cyber1ref4"}
	out := composePayout(big.NewInt(1000), testDenom, "cyber1beneficiary", chain, "cyber1community", 8000)
	if len(out) != 5 {
		t.Fatalf("instructions: got %d want 5", len(out))
	}
	if out[0].Amount.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("primary: got %s want 800", out[0].Amount)
	}
	for i, in := range out[1:] {
		if in.Kind != PayoutKindReferral || in.Recipient != chain[i] {
			t.Fatalf("referral %d: %+v", i, in)
		}
		if in.Amount.Cmp(big.NewInt(50)) != 0 {
			t.Fatalf("referral share: got %s want 50", in.Amount)
		}
	}
	if sumInstructions(out).Cmp(big.NewInt(1000)) != 0 {
		t.Fatal("instructions must sum to the release amount")
	}
}

func TestComposePayoutResidueGoesToPrimary(t *testing.T) {
	// 1003 * 80% floors to 802, leaving 201 across 4 ancestors: 50 each plus
	// a residue of 1 that rides with the primary payout.
	chain := []string{"a", "b", "c", "d"}
	out := composePayout(big.NewInt(1003), testDenom, "beneficiary", chain, "community", 8000)
	if out[0].Amount.Cmp(big.NewInt(803)) != 0 {
		t.Fatalf("primary with residue: got %s want 803", out[0].Amount)
	}
	if sumInstructions(out).Cmp(big.NewInt(1003)) != 0 {
		t.Fatal("instructions must sum to the release amount")
	}
}

func TestComposePayoutRemainderTooSmallToSplit(t *testing.T) {
	chain := []string{"a", "b", "c", "d"}
	out := composePayout(big.NewInt(10), testDenom, "beneficiary", chain, "community", 8000)
	// 20% of 10 is 2, below one unit per ancestor; everything goes primary.
	if len(out) != 1 || out[0].Kind != PayoutKindGift || out[0].Amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("tiny release: %+v", out)
	}
}

func TestComposePayoutFullShare(t *testing.T) {
	out := composePayout(big.NewInt(500), testDenom, "beneficiary", []string{"a"}, "community", 10_000)
	if len(out) != 1 || out[0].Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("full primary share: %+v", out)
	}
}

func TestComposePayoutZeroAmount(t *testing.T) {
	if out := composePayout(big.NewInt(0), testDenom, "beneficiary", nil, "community", 8000); out != nil {
		t.Fatalf("zero amount should produce no instructions, got %+v", out)
	}
}
