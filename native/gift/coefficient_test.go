package gift

import (
	"errors"
	"math/big"
	"testing"
)

func testPool() *Pool {
	initial := big.NewInt(10_000_000_000_000)
	return &Pool{
		InitialBalance:  new(big.Int).Set(initial),
		CurrentBalance:  new(big.Int).Set(initial),
		CoefficientUp:   big.NewInt(20),
		CoefficientDown: big.NewInt(5),
		Coefficient:     NewDecFromUint64(20),
		TargetClaim:     2,
	}
}

func TestApplyClaimScalesByCoefficient(t *testing.T) {
	pool := testPool()
	payout, err := applyClaim(pool, big.NewInt(10_000_000))
	if err != nil {
		t.Fatalf("applyClaim: %v", err)
	}
	if payout.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("payout: got %s want 200000000", payout)
	}
	wantBalance := big.NewInt(10_000_000_000_000 - 200_000_000)
	if pool.CurrentBalance.Cmp(wantBalance) != 0 {
		t.Fatalf("balance: got %s want %s", pool.CurrentBalance, wantBalance)
	}
}

func TestApplyClaimRecomputesAfterSubtraction(t *testing.T) {
	pool := testPool()
	if _, err := applyClaim(pool, big.NewInt(10_000_000)); err != nil {
		t.Fatalf("applyClaim: %v", err)
	}
	// ratio = (initial - payout) / initial, so the new coefficient must sit
	// strictly below the upper bound.
	up := NewDecFromInt(pool.CoefficientUp)
	if pool.Coefficient.Cmp(up) >= 0 {
		t.Fatalf("coefficient did not decay: %s", pool.Coefficient)
	}
	down := NewDecFromInt(pool.CoefficientDown)
	if pool.Coefficient.Cmp(down) < 0 {
		t.Fatalf("coefficient fell below lower bound: %s", pool.Coefficient)
	}
}

func TestCoefficientBounds(t *testing.T) {
	pool := testPool()

	pool.CurrentBalance = new(big.Int).Set(pool.InitialBalance)
	if got := nextCoefficient(pool); got.Cmp(NewDecFromUint64(20)) != 0 {
		t.Fatalf("full pool: got %s want 20", got)
	}

	pool.CurrentBalance = big.NewInt(0)
	if got := nextCoefficient(pool); got.Cmp(NewDecFromUint64(5)) != 0 {
		t.Fatalf("drained pool: got %s want 5", got)
	}

	pool.CurrentBalance = new(big.Int).Quo(pool.InitialBalance, big.NewInt(2))
	want := NewDecFromRatio(big.NewInt(25), big.NewInt(2))
	if got := nextCoefficient(pool); got.Cmp(want) != 0 {
		t.Fatalf("half pool: got %s want %s", got, want)
	}
}

func TestCoefficientMonotoneDecay(t *testing.T) {
	pool := testPool()
	prev := pool.Coefficient
	// 20 claims of 10^10 at coefficients bounded by 20 spend at most 4*10^12
	// of the 10^13 pool, so every claim stays within balance.
	for i := 0; i < 20; i++ {
		if _, err := applyClaim(pool, big.NewInt(10_000_000_000)); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if pool.Coefficient.Cmp(prev) > 0 {
			t.Fatalf("coefficient rose on claim %d: %s -> %s", i, prev, pool.Coefficient)
		}
		prev = pool.Coefficient
	}
}

func TestApplyClaimInsufficientBalance(t *testing.T) {
	pool := testPool()
	pool.CurrentBalance = big.NewInt(100)
	before := new(big.Int).Set(pool.CurrentBalance)
	coeffBefore := pool.Coefficient
	_, err := applyClaim(pool, big.NewInt(10_000_000))
	if !errors.Is(err, ErrGiftOver) {
		t.Fatalf("expected ErrGiftOver, got %v", err)
	}
	if pool.CurrentBalance.Cmp(before) != 0 || pool.Coefficient.Cmp(coeffBefore) != 0 {
		t.Fatal("failed claim must leave the pool untouched")
	}
}

func TestApplyClaimRejectsNonPositive(t *testing.T) {
	pool := testPool()
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		if _, err := applyClaim(pool, amount); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("amount %v: expected ErrInvalidInput, got %v", amount, err)
		}
	}
}
