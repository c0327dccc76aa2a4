package events

import (
	"math/big"
	"strconv"

	"cybergift/core/types"
)

const (
	TypeGiftClaimed          = "gift.claimed"
	TypeGiftReleased         = "gift.released"
	TypeGiftMerkleRoot       = "gift.merkle_root.registered"
	TypeGiftReferralSet      = "gift.referral.registered"
	TypeGiftConfigUpdated    = "gift.config.updated"
	TypeGiftPayoutInstructed = "gift.payout.instructed"
)

// GiftClaimed is emitted once per identity on successful claim admission.
type GiftClaimed struct {
	Identity    string
	Beneficiary string
	RawAmount   *big.Int
	Amount      *big.Int
	Multiplier  string
	Claims      uint64
}

func (GiftClaimed) EventType() string { return TypeGiftClaimed }

func (e GiftClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeGiftClaimed,
		Attributes: map[string]string{
			"identity":    e.Identity,
			"beneficiary": e.Beneficiary,
			"rawAmount":   formatAmount(e.RawAmount),
			"amount":      formatAmount(e.Amount),
			"multiplier":  e.Multiplier,
			"claims":      strconv.FormatUint(e.Claims, 10),
		},
	}
}

// GiftReleased is emitted for every successful vesting stage release.
type GiftReleased struct {
	Identity    string
	Beneficiary string
	Stage       uint64
	Amount      *big.Int
	Remaining   *big.Int
}

func (GiftReleased) EventType() string { return TypeGiftReleased }

func (e GiftReleased) Event() *types.Event {
	return &types.Event{
		Type: TypeGiftReleased,
		Attributes: map[string]string{
			"identity":    e.Identity,
			"beneficiary": e.Beneficiary,
			"stage":       strconv.FormatUint(e.Stage, 10),
			"amount":      formatAmount(e.Amount),
			"remaining":   formatAmount(e.Remaining),
		},
	}
}

// GiftMerkleRootRegistered is emitted when the owner registers a new
// eligibility root.
type GiftMerkleRootRegistered struct {
	Root string
}

func (GiftMerkleRootRegistered) EventType() string { return TypeGiftMerkleRoot }

func (e GiftMerkleRootRegistered) Event() *types.Event {
	return &types.Event{
		Type:       TypeGiftMerkleRoot,
		Attributes: map[string]string{"root": e.Root},
	}
}

// GiftReferralSet is emitted when a referred -> referrer edge is recorded.
type GiftReferralSet struct {
	Referred string
	Referrer string
}

func (GiftReferralSet) EventType() string { return TypeGiftReferralSet }

func (e GiftReferralSet) Event() *types.Event {
	return &types.Event{
		Type: TypeGiftReferralSet,
		Attributes: map[string]string{
			"referred": e.Referred,
			"referrer": e.Referrer,
		},
	}
}

// GiftConfigUpdated is emitted after a successful owner-gated parameter
// change.
type GiftConfigUpdated struct {
	Field string
	Value string
}

func (GiftConfigUpdated) EventType() string { return TypeGiftConfigUpdated }

func (e GiftConfigUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeGiftConfigUpdated,
		Attributes: map[string]string{
			"field": e.Field,
			"value": e.Value,
		},
	}
}

// GiftPayoutInstructed is emitted for every payout instruction handed to the
// treasury sink.
type GiftPayoutInstructed struct {
	Recipient string
	Denom     string
	Amount    *big.Int
	Kind      string
}

func (GiftPayoutInstructed) EventType() string { return TypeGiftPayoutInstructed }

func (e GiftPayoutInstructed) Event() *types.Event {
	return &types.Event{
		Type: TypeGiftPayoutInstructed,
		Attributes: map[string]string{
			"recipient": e.Recipient,
			"denom":     e.Denom,
			"amount":    formatAmount(e.Amount),
			"kind":      e.Kind,
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
