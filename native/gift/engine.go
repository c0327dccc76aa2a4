package gift

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cybergift/core/events"
	"cybergift/crypto"
)

// engineState is the narrow persistence surface the engine depends on.
type engineState interface {
	PoolGet() (*Pool, bool, error)
	PoolPut(*Pool) error
	ParamsGet() (*Params, bool, error)
	ParamsPut(*Params) error
	MerkleRoot() (string, bool, error)
	SetMerkleRoot(string) error
	ClaimGet(identity string) (*ClaimRecord, bool, error)
	ClaimPut(identity string, record *ClaimRecord) error
	ReleaseGet(identity string) (*ReleaseRecord, bool, error)
	ReleasePut(identity string, record *ReleaseRecord) error
	StageReleaseBump(stage uint64) error
	StageReleaseCount(stage uint64) (uint64, error)
	referralState
}

// PassportOracle resolves claimant nicknames against the identity registry.
// When configured, the engine delegates address-ownership checks to it
// instead of verifying signatures directly.
type PassportOracle interface {
	PassportSigned(nickname, address string) (bool, error)
	AddressByNickname(nickname string) (string, error)
}

// Sink receives fund-transfer instructions. The engine never moves tokens;
// implementations forward the instructions to the treasury.
type Sink interface {
	Send(instruction Instruction) error
}

// NoopSink discards all instructions.
type NoopSink struct{}

// Send implements the Sink interface.
func (NoopSink) Send(Instruction) error { return nil }

// Engine wires the airdrop business logic with external state, the identity
// oracle, the treasury sink and event emission. All methods execute
// synchronously: validation strictly precedes the first write, so a failed
// request leaves no partial state behind.
type Engine struct {
	state   engineState
	emitter events.Emitter
	sink    Sink
	oracle  PassportOracle
	nowFn   func() int64
}

// NewEngine creates a gift engine with a no-op emitter and sink.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		sink:    NoopSink{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetSink configures the treasury sink. Passing nil resets it to a no-op.
func (e *Engine) SetSink(sink Sink) {
	if sink == nil {
		e.sink = NoopSink{}
		return
	}
	e.sink = sink
}

// SetOracle configures the passport oracle. With a nil oracle the engine
// verifies claim signature proofs itself.
func (e *Engine) SetOracle(oracle PassportOracle) { e.oracle = oracle }

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) dispatch(instructions []Instruction) error {
	for _, in := range instructions {
		if err := e.sink.Send(in); err != nil {
			return fmt.Errorf("gift: treasury sink: %w", err)
		}
		e.emit(events.GiftPayoutInstructed{
			Recipient: in.Recipient,
			Denom:     in.Denom,
			Amount:    in.Amount,
			Kind:      in.Kind,
		})
	}
	return nil
}

// Initialize persists the campaign parameters and seeds the pool. It is a
// no-op when the pool already exists, so restarting the service is safe.
func (e *Engine) Initialize(params *Params) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	params = params.Clone().Normalize()
	if err := params.Validate(); err != nil {
		return err
	}
	if _, exists, err := e.state.PoolGet(); err != nil {
		return err
	} else if exists {
		return nil
	}
	if err := e.state.ParamsPut(params); err != nil {
		return err
	}
	return e.state.PoolPut(&Pool{
		InitialBalance:  cloneBigInt(params.InitialBalance),
		CurrentBalance:  cloneBigInt(params.InitialBalance),
		CoefficientUp:   cloneBigInt(params.CoefficientUp),
		CoefficientDown: cloneBigInt(params.CoefficientDown),
		Coefficient:     NewDecFromInt(params.Coefficient),
		TargetClaim:     params.TargetClaim,
	})
}

func (e *Engine) loadParams() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	params, ok, err := e.state.ParamsGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return params.Normalize(), nil
}

func (e *Engine) loadPool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pool, ok, err := e.state.PoolGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return pool, nil
}

func (e *Engine) requireOwner(caller string) (*Params, error) {
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	if params.Owner == "" || !strings.EqualFold(strings.TrimSpace(caller), params.Owner) {
		return nil, ErrUnauthorized
	}
	return params, nil
}

// RegisterMerkleRoot stores the hex-encoded eligibility root. Owner only.
func (e *Engine) RegisterMerkleRoot(caller, rootHex string) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	rootHex = strings.TrimSpace(rootHex)
	if _, err := decodeDigest(rootHex); err != nil {
		return err
	}
	if err := e.state.SetMerkleRoot(rootHex); err != nil {
		return err
	}
	e.emit(events.GiftMerkleRootRegistered{Root: rootHex})
	return nil
}

// UpdateOwner transfers or, with an empty newOwner, permanently disables
// administration. Owner only.
func (e *Engine) UpdateOwner(caller, newOwner string) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	newOwner = strings.TrimSpace(newOwner)
	if newOwner != "" {
		if err := crypto.ValidateAddress(newOwner); err != nil {
			return fmt.Errorf("%w: owner: %v", ErrInvalidInput, err)
		}
	}
	params.Owner = newOwner
	if err := e.state.ParamsPut(params); err != nil {
		return err
	}
	e.emit(events.GiftConfigUpdated{Field: "owner", Value: newOwner})
	return nil
}

// UpdateTreasury points the bounty/payout source at a new account. Owner only.
func (e *Engine) UpdateTreasury(caller, treasury string) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	treasury = strings.TrimSpace(treasury)
	if err := crypto.ValidateAddress(treasury); err != nil {
		return fmt.Errorf("%w: treasury: %v", ErrInvalidInput, err)
	}
	params.Treasury = treasury
	if err := e.state.ParamsPut(params); err != nil {
		return err
	}
	e.emit(events.GiftConfigUpdated{Field: "treasury", Value: treasury})
	return nil
}

// UpdatePassport points claim admission at a different passport registry.
// Owner only.
func (e *Engine) UpdatePassport(caller, registry string) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	registry = strings.TrimSpace(registry)
	if registry == "" {
		return fmt.Errorf("%w: passport registry required", ErrInvalidInput)
	}
	params.Passport = registry
	if err := e.state.ParamsPut(params); err != nil {
		return err
	}
	e.emit(events.GiftConfigUpdated{Field: "passport", Value: registry})
	return nil
}

// UpdateTarget changes the claim-count activation threshold. Owner only.
func (e *Engine) UpdateTarget(caller string, target uint64) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if target == 0 {
		return fmt.Errorf("%w: target claim must be positive", ErrInvalidInput)
	}
	params.TargetClaim = target
	if err := e.state.ParamsPut(params); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	pool.TargetClaim = target
	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	e.emit(events.GiftConfigUpdated{Field: "target_claim", Value: strconv.FormatUint(target, 10)})
	return nil
}

// ClaimRequest carries one claim submission. ClaimingAddress is the identity
// committed in the Merkle tree; TargetAddress is the account that receives
// the vested funds. With a passport oracle configured, Nickname is resolved
// through it and TargetAddress is ignored; otherwise Proof must demonstrate
// ownership of ClaimingAddress.
type ClaimRequest struct {
	Nickname        string
	ClaimingAddress string
	TargetAddress   string
	Amount          *big.Int
	MerkleProof     []string
	Referral        string
	Proof           *crypto.SignatureProof
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	Identity    string
	Beneficiary string
	Amount      *big.Int
	Multiplier  Dec
	Bounty      *big.Int
}

// SignDoc is the canonical byte string signed by self-verified claimants.
func SignDoc(claimingAddress, targetAddress string, amount *big.Int) []byte {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return []byte(NormalizeIdentity(claimingAddress) + ":" + strings.TrimSpace(targetAddress) + ":" + amount.String())
}

// Claim admits an eligible identity into the campaign: the payout is fixed by
// the coefficient in force now, a release record is initialised with the
// bounty carved out, and the bounty transfer is instructed immediately.
func (e *Engine) Claim(req *ClaimRequest) (*ClaimResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if req == nil {
		return nil, fmt.Errorf("%w: nil claim request", ErrInvalidInput)
	}
	identity := NormalizeIdentity(req.ClaimingAddress)
	if identity == "" {
		return nil, fmt.Errorf("%w: claiming address required", ErrInvalidInput)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: claim amount must be positive", ErrInvalidInput)
	}
	if _, claimed, err := e.state.ClaimGet(identity); err != nil {
		return nil, err
	} else if claimed {
		return nil, ErrAlreadyClaimed
	}

	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	// The pool is an in-memory copy; nothing is persisted until every check
	// has passed.
	multiplier := pool.Coefficient
	payout, err := applyClaim(pool, req.Amount)
	if err != nil {
		return nil, err
	}
	if payout.Cmp(params.ClaimBounty) < 0 {
		return nil, fmt.Errorf("%w: payout %s smaller than claim bounty %s", ErrInvalidInput, payout, params.ClaimBounty)
	}
	referral := strings.TrimSpace(req.Referral)
	if referral != "" {
		if err := crypto.ValidateAddress(referral); err != nil {
			return nil, fmt.Errorf("%w: referral: %v", ErrInvalidInput, err)
		}
	}

	beneficiary, err := e.resolveBeneficiary(req, identity)
	if err != nil {
		return nil, err
	}

	root, ok, err := e.state.MerkleRoot()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMerkleRootNotSet
	}
	if err := VerifyProof(root, identity, req.Amount, req.MerkleProof); err != nil {
		return nil, err
	}

	// All checks passed; persist the admission as one logical transaction.
	pool.Claims++
	if err := e.state.ClaimPut(identity, &ClaimRecord{Amount: payout, Multiplier: multiplier}); err != nil {
		return nil, err
	}
	if err := e.state.ReleasePut(identity, &ReleaseRecord{
		Beneficiary: beneficiary,
		Remaining:   new(big.Int).Sub(payout, params.ClaimBounty),
	}); err != nil {
		return nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}

	if referral != "" && referral != beneficiary {
		if has, err := HasRef(e.state, beneficiary); err != nil {
			return nil, err
		} else if !has {
			if err := SetRef(e.state, beneficiary, referral); err != nil {
				return nil, err
			}
			e.emit(events.GiftReferralSet{Referred: beneficiary, Referrer: referral})
		}
	}

	if params.ClaimBounty.Sign() > 0 {
		if err := e.dispatch([]Instruction{{
			Recipient: beneficiary,
			Denom:     params.Denom,
			Amount:    cloneBigInt(params.ClaimBounty),
			Kind:      PayoutKindBounty,
		}}); err != nil {
			return nil, err
		}
	}

	e.emit(events.GiftClaimed{
		Identity:    identity,
		Beneficiary: beneficiary,
		RawAmount:   cloneBigInt(req.Amount),
		Amount:      cloneBigInt(payout),
		Multiplier:  multiplier.String(),
		Claims:      pool.Claims,
	})
	return &ClaimResult{
		Identity:    identity,
		Beneficiary: beneficiary,
		Amount:      payout,
		Multiplier:  multiplier,
		Bounty:      cloneBigInt(params.ClaimBounty),
	}, nil
}

func (e *Engine) resolveBeneficiary(req *ClaimRequest, identity string) (string, error) {
	if e.oracle != nil {
		nickname := strings.TrimSpace(req.Nickname)
		if nickname == "" {
			return "", fmt.Errorf("%w: nickname required", ErrInvalidInput)
		}
		signed, err := e.oracle.PassportSigned(nickname, identity)
		if err != nil {
			return "", err
		}
		if !signed {
			return "", ErrNotEligible
		}
		address, err := e.oracle.AddressByNickname(nickname)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(address), nil
	}
	target := strings.TrimSpace(req.TargetAddress)
	if target == "" {
		return "", fmt.Errorf("%w: target address required", ErrInvalidInput)
	}
	if err := crypto.ValidateAddress(target); err != nil {
		return "", fmt.Errorf("%w: target: %v", ErrInvalidInput, err)
	}
	if req.Proof == nil {
		return "", fmt.Errorf("%w: signature proof required", ErrInvalidInput)
	}
	if err := req.Proof.Verify(req.ClaimingAddress, SignDoc(req.ClaimingAddress, target, req.Amount)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotEligible, err)
	}
	return target, nil
}

// ReleaseResult reports a successful vesting stage release.
type ReleaseResult struct {
	Identity     string
	Beneficiary  string
	Stage        uint64
	Amount       *big.Int
	Remaining    *big.Int
	Instructions []Instruction
}

// Release advances the caller's vesting state machine by one stage. The first
// release unlocks 10% of the vested balance and arms the stage timer; each
// subsequent release after the timer elapses amortises what is left equally
// across the remaining stages, and the final stage drains the balance.
func (e *Engine) Release(giftAddress, caller string) (*ReleaseResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	identity := NormalizeIdentity(giftAddress)
	if identity == "" {
		return nil, fmt.Errorf("%w: gift address required", ErrInvalidInput)
	}
	if _, claimed, err := e.state.ClaimGet(identity); err != nil {
		return nil, err
	} else if !claimed {
		return nil, ErrNotClaimed
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if pool.Claims < pool.TargetClaim {
		return nil, ErrNotActivated
	}
	release, ok, err := e.state.ReleaseGet(identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotClaimed
	}
	if !strings.EqualFold(strings.TrimSpace(caller), release.Beneficiary) {
		return nil, ErrUnauthorized
	}
	if release.Remaining.Sign() == 0 {
		return nil, ErrGiftReleased
	}

	now := e.now()
	var amount *big.Int
	releasedStage := release.Stage
	switch {
	case release.Stage == 0:
		amount = DecPercent(10).MulInt(release.Remaining)
		release.Stage = params.ReleaseStages
		release.StageExpiration = now + int64(params.ReleasePeriod.Seconds())
	case now < release.StageExpiration:
		return nil, ErrStageLocked
	case release.Stage == 1:
		amount = cloneBigInt(release.Remaining)
		release.Stage = 0
		release.StageExpiration = 0
	default:
		amount = NewDecFromRatio(big.NewInt(1), new(big.Int).SetUint64(release.Stage)).MulInt(release.Remaining)
		release.Stage--
		release.StageExpiration = now + int64(params.ReleasePeriod.Seconds())
	}

	release.Remaining = new(big.Int).Sub(release.Remaining, amount)
	if err := e.state.ReleasePut(identity, release); err != nil {
		return nil, err
	}
	pool.Releases++
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.StageReleaseBump(releasedStage); err != nil {
		return nil, err
	}

	chain, err := RefChain(e.state, release.Beneficiary, PayoutChainDepth)
	if err != nil {
		return nil, err
	}
	instructions := composePayout(amount, params.Denom, release.Beneficiary, chain, params.CommunityPool, params.PrimaryShareBps)
	if err := e.dispatch(instructions); err != nil {
		return nil, err
	}

	e.emit(events.GiftReleased{
		Identity:    identity,
		Beneficiary: release.Beneficiary,
		Stage:       release.Stage,
		Amount:      cloneBigInt(amount),
		Remaining:   cloneBigInt(release.Remaining),
	})
	return &ReleaseResult{
		Identity:     identity,
		Beneficiary:  release.Beneficiary,
		Stage:        release.Stage,
		Amount:       amount,
		Remaining:    cloneBigInt(release.Remaining),
		Instructions: instructions,
	}, nil
}

// --- Queries ---

// PoolState returns a copy of the singleton pool record.
func (e *Engine) PoolState() (*Pool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// CampaignParams returns a copy of the persisted parameters.
func (e *Engine) CampaignParams() (*Params, error) {
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}

// MerkleRoot returns the registered eligibility root.
func (e *Engine) MerkleRoot() (string, error) {
	if e == nil || e.state == nil {
		return "", ErrNilState
	}
	root, ok, err := e.state.MerkleRoot()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrMerkleRootNotSet
	}
	return root, nil
}

// IsClaimed reports whether the identity has already been admitted.
func (e *Engine) IsClaimed(identity string) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	_, ok, err := e.state.ClaimGet(NormalizeIdentity(identity))
	return ok, err
}

// Claimed returns the claim record for an identity.
func (e *Engine) Claimed(identity string) (*ClaimRecord, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrNilState
	}
	record, ok, err := e.state.ClaimGet(NormalizeIdentity(identity))
	if err != nil || !ok {
		return nil, false, err
	}
	return record.Clone(), true, nil
}

// ReleaseState returns the release record for an identity. Absent records
// yield a zero-valued state, mirroring the production query behaviour.
func (e *Engine) ReleaseState(identity string) (*ReleaseRecord, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.ReleaseGet(NormalizeIdentity(identity))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ReleaseRecord{Remaining: big.NewInt(0)}, nil
	}
	return record.Clone(), nil
}

// ReleaseStageStats returns the per-stage release counters, index 0 being the
// initial unlock.
func (e *Engine) ReleaseStageStats() (map[uint64]uint64, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	stats := make(map[uint64]uint64, params.ReleaseStages+1)
	for stage := uint64(0); stage <= params.ReleaseStages; stage++ {
		count, err := e.state.StageReleaseCount(stage)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			stats[stage] = count
		}
	}
	return stats, nil
}

// Referrals pages through all recorded edges.
func (e *Engine) Referrals(startAfter string, limit int, ascending bool) ([]*Refer, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return AllRefs(e.state, startAfter, limit, ascending)
}

// ReferredBy pages through the addresses referred by the given referrer.
func (e *Engine) ReferredBy(referrer, startAfter string, limit int, ascending bool) ([]string, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return ReferredOf(e.state, referrer, startAfter, limit, ascending)
}

// ReferralChain returns up to depth ancestors of addr, nearest first.
func (e *Engine) ReferralChain(addr string, depth int) ([]string, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return RefChain(e.state, strings.TrimSpace(addr), depth)
}
