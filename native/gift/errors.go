package gift

import "errors"

var (
	ErrNilState          = errors.New("gift: state not configured")
	ErrNotInitialized    = errors.New("gift: campaign not initialised")
	ErrUnauthorized      = errors.New("gift: unauthorized")
	ErrInvalidInput      = errors.New("gift: invalid input")
	ErrAlreadyClaimed    = errors.New("gift: already claimed")
	ErrNotClaimed        = errors.New("gift: not claimed")
	ErrNotActivated      = errors.New("gift: campaign not activated")
	ErrStageLocked       = errors.New("gift: stage still locked")
	ErrGiftReleased      = errors.New("gift: fully released")
	ErrGiftOver          = errors.New("gift: pool exhausted")
	ErrNotEligible       = errors.New("gift: address is not eligible to claim")
	ErrMerkleRootNotSet  = errors.New("gift: merkle root not registered")
	ErrInvalidProof      = errors.New("gift: malformed merkle proof")
	ErrProofVerification = errors.New("gift: merkle proof verification failed")
	ErrSelfReferral      = errors.New("gift: referrer cannot be the referred address")
	ErrReferralExists    = errors.New("gift: referral already recorded")
)
