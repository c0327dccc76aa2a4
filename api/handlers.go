package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cybergift/crypto"
	"cybergift/native/gift"
	"cybergift/native/passport"
)

type claimRequest struct {
	Nickname        string   `json:"nickname,omitempty"`
	ClaimingAddress string   `json:"claimingAddress"`
	TargetAddress   string   `json:"targetAddress,omitempty"`
	Amount          string   `json:"amount"`
	MerkleProof     []string `json:"merkleProof"`
	Referral        string   `json:"referral,omitempty"`
	ClaimerType     string   `json:"claimerType,omitempty"`
	Signature       string   `json:"signature,omitempty"`
	PubKey          string   `json:"pubKey,omitempty"`
}

type claimResponse struct {
	Identity    string `json:"identity"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
	Multiplier  string `json:"multiplier"`
	Bounty      string `json:"bounty"`
}

type releaseRequest struct {
	GiftAddress string `json:"giftAddress"`
	Caller      string `json:"caller"`
}

type instructionDTO struct {
	Recipient string `json:"recipient"`
	Denom     string `json:"denom"`
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
}

type releaseResponse struct {
	Identity     string           `json:"identity"`
	Beneficiary  string           `json:"beneficiary"`
	Stage        uint64           `json:"stage"`
	Amount       string           `json:"amount"`
	Remaining    string           `json:"remaining"`
	Instructions []instructionDTO `json:"instructions"`
}

type registerRootRequest struct {
	Caller string `json:"caller"`
	Root   string `json:"root"`
}

type poolResponse struct {
	InitialBalance string `json:"initialBalance"`
	CurrentBalance string `json:"currentBalance"`
	Coefficient    string `json:"coefficient"`
	Claims         uint64 `json:"claims"`
	Releases       uint64 `json:"releases"`
	TargetClaim    uint64 `json:"targetClaim"`
}

type passportCreateRequest struct {
	Nickname string `json:"nickname"`
	Owner    string `json:"owner"`
}

type passportProveRequest struct {
	Address     string `json:"address"`
	ClaimerType string `json:"claimerType"`
	Signature   string `json:"signature"`
	PubKey      string `json:"pubKey,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status, reason := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "error", err)
	}
	s.metrics.Rejections.WithLabelValues(op, reason).Inc()
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// classify maps engine sentinels onto HTTP status codes plus a short metric
// label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, gift.ErrAlreadyClaimed):
		return http.StatusConflict, "already_claimed"
	case errors.Is(err, gift.ErrGiftReleased):
		return http.StatusConflict, "gift_released"
	case errors.Is(err, gift.ErrGiftOver):
		return http.StatusConflict, "gift_over"
	case errors.Is(err, gift.ErrStageLocked):
		return http.StatusConflict, "stage_locked"
	case errors.Is(err, gift.ErrNotActivated):
		return http.StatusConflict, "not_activated"
	case errors.Is(err, gift.ErrReferralExists):
		return http.StatusConflict, "referral_exists"
	case errors.Is(err, gift.ErrSelfReferral):
		return http.StatusBadRequest, "self_referral"
	case errors.Is(err, gift.ErrNotClaimed):
		return http.StatusNotFound, "not_claimed"
	case errors.Is(err, gift.ErrMerkleRootNotSet):
		return http.StatusServiceUnavailable, "root_not_set"
	case errors.Is(err, gift.ErrNotInitialized):
		return http.StatusServiceUnavailable, "not_initialized"
	case errors.Is(err, gift.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, gift.ErrNotEligible), errors.Is(err, crypto.ErrNotEligible):
		return http.StatusForbidden, "not_eligible"
	case errors.Is(err, gift.ErrInvalidProof), errors.Is(err, gift.ErrProofVerification):
		return http.StatusBadRequest, "bad_proof"
	case errors.Is(err, gift.ErrInvalidInput), errors.Is(err, crypto.ErrUnknownClaimerType):
		return http.StatusBadRequest, "bad_input"
	case errors.Is(err, passport.ErrNotFound):
		return http.StatusNotFound, "passport_not_found"
	case errors.Is(err, passport.ErrExists), errors.Is(err, passport.ErrAddressProved):
		return http.StatusConflict, "passport_conflict"
	case errors.Is(err, passport.ErrInvalidInput):
		return http.StatusBadRequest, "bad_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", gift.ErrInvalidInput, err)
	}
	return nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount is not a base-10 integer", gift.ErrInvalidInput)
	}
	return amount, nil
}

func parseSignatureProof(claimerType, signature, pubKey string) (*crypto.SignatureProof, error) {
	if claimerType == "" && signature == "" {
		return nil, nil
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: signature hex: %v", gift.ErrInvalidInput, err)
	}
	proof := &crypto.SignatureProof{
		Type:      crypto.ClaimerType(strings.ToLower(strings.TrimSpace(claimerType))),
		Signature: sig,
	}
	if pubKey != "" {
		pk, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(pubKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: public key hex: %v", gift.ErrInvalidInput, err)
		}
		proof.PubKey = pk
	}
	return proof, nil
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "claim", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, "claim", err)
		return
	}
	proof, err := parseSignatureProof(req.ClaimerType, req.Signature, req.PubKey)
	if err != nil {
		s.writeError(w, "claim", err)
		return
	}
	result, err := s.engine.Claim(&gift.ClaimRequest{
		Nickname:        req.Nickname,
		ClaimingAddress: req.ClaimingAddress,
		TargetAddress:   req.TargetAddress,
		Amount:          amount,
		MerkleProof:     req.MerkleProof,
		Referral:        req.Referral,
		Proof:           proof,
	})
	if err != nil {
		s.writeError(w, "claim", err)
		return
	}
	claimer := strings.ToLower(strings.TrimSpace(req.ClaimerType))
	if claimer == "" {
		claimer = "passport"
	}
	s.metrics.Claims.WithLabelValues(claimer).Inc()
	s.observePool()
	writeJSON(w, http.StatusOK, claimResponse{
		Identity:    result.Identity,
		Beneficiary: result.Beneficiary,
		Amount:      result.Amount.String(),
		Multiplier:  result.Multiplier.String(),
		Bounty:      result.Bounty.String(),
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "release", err)
		return
	}
	result, err := s.engine.Release(req.GiftAddress, req.Caller)
	if err != nil {
		s.writeError(w, "release", err)
		return
	}
	s.metrics.Releases.Inc()
	instructions := make([]instructionDTO, 0, len(result.Instructions))
	for _, in := range result.Instructions {
		instructions = append(instructions, instructionDTO{
			Recipient: in.Recipient,
			Denom:     in.Denom,
			Amount:    in.Amount.String(),
			Kind:      in.Kind,
		})
	}
	writeJSON(w, http.StatusOK, releaseResponse{
		Identity:     result.Identity,
		Beneficiary:  result.Beneficiary,
		Stage:        result.Stage,
		Amount:       result.Amount.String(),
		Remaining:    result.Remaining.String(),
		Instructions: instructions,
	})
}

func (s *Server) handleRegisterRoot(w http.ResponseWriter, r *http.Request) {
	var req registerRootRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "register_root", err)
		return
	}
	if err := s.engine.RegisterMerkleRoot(req.Caller, req.Root); err != nil {
		s.writeError(w, "register_root", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": strings.TrimSpace(req.Root)})
}

func (s *Server) observePool() {
	pool, err := s.engine.PoolState()
	if err != nil {
		return
	}
	s.metrics.SetPoolBalance(pool.CurrentBalance)
	s.metrics.Coefficient.Set(pool.Coefficient.Float64())
}

func (s *Server) handlePool(w http.ResponseWriter, _ *http.Request) {
	pool, err := s.engine.PoolState()
	if err != nil {
		s.writeError(w, "pool", err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		InitialBalance: pool.InitialBalance.String(),
		CurrentBalance: pool.CurrentBalance.String(),
		Coefficient:    pool.Coefficient.String(),
		Claims:         pool.Claims,
		Releases:       pool.Releases,
		TargetClaim:    pool.TargetClaim,
	})
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request) {
	params, err := s.engine.CampaignParams()
	if err != nil {
		s.writeError(w, "params", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":           params.Owner,
		"treasury":        params.Treasury,
		"communityPool":   params.CommunityPool,
		"passport":        params.Passport,
		"denom":           params.Denom,
		"targetClaim":     params.TargetClaim,
		"initialBalance":  params.InitialBalance.String(),
		"claimBounty":     params.ClaimBounty.String(),
		"releaseStages":   params.ReleaseStages,
		"releasePeriod":   params.ReleasePeriod.String(),
		"primaryShareBps": params.PrimaryShareBps,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	root, err := s.engine.MerkleRoot()
	if err != nil {
		s.writeError(w, "root", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": root})
}

func (s *Server) handleClaimState(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	record, ok, err := s.engine.Claimed(address)
	if err != nil {
		s.writeError(w, "claim_state", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"claimed": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claimed":    true,
		"amount":     record.Amount.String(),
		"multiplier": record.Multiplier.String(),
	})
}

func (s *Server) handleReleaseState(w http.ResponseWriter, r *http.Request) {
	record, err := s.engine.ReleaseState(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, "release_state", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"beneficiary":     record.Beneficiary,
		"remaining":       record.Remaining.String(),
		"stage":           record.Stage,
		"stageExpiration": record.StageExpiration,
	})
}

func (s *Server) handleReleaseStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.engine.ReleaseStageStats()
	if err != nil {
		s.writeError(w, "release_stats", err)
		return
	}
	out := make(map[string]uint64, len(stats))
	for stage, count := range stats {
		out[strconv.FormatUint(stage, 10)] = count
	}
	writeJSON(w, http.StatusOK, out)
}

func paging(r *http.Request) (string, int, bool) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	ascending := !strings.EqualFold(q.Get("order"), "desc")
	return q.Get("startAfter"), limit, ascending
}

func (s *Server) handleReferrals(w http.ResponseWriter, r *http.Request) {
	startAfter, limit, ascending := paging(r)
	edges, err := s.engine.Referrals(startAfter, limit, ascending)
	if err != nil {
		s.writeError(w, "referrals", err)
		return
	}
	out := make([]map[string]string, 0, len(edges))
	for _, edge := range edges {
		out = append(out, map[string]string{"referred": edge.Referred, "referrer": edge.Referrer})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReferralChain(w http.ResponseWriter, r *http.Request) {
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	chain, err := s.engine.ReferralChain(chi.URLParam(r, "address"), depth)
	if err != nil {
		s.writeError(w, "referral_chain", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chain": chain})
}

func (s *Server) handleReferred(w http.ResponseWriter, r *http.Request) {
	startAfter, limit, ascending := paging(r)
	referred, err := s.engine.ReferredBy(chi.URLParam(r, "address"), startAfter, limit, ascending)
	if err != nil {
		s.writeError(w, "referred", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referred": referred})
}

func (s *Server) handlePassportCreate(w http.ResponseWriter, r *http.Request) {
	if s.passport == nil {
		http.NotFound(w, r)
		return
	}
	var req passportCreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "passport_create", err)
		return
	}
	record, err := s.passport.Create(req.Nickname, req.Owner)
	if err != nil {
		s.writeError(w, "passport_create", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handlePassportProve(w http.ResponseWriter, r *http.Request) {
	if s.passport == nil {
		http.NotFound(w, r)
		return
	}
	var req passportProveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "passport_prove", err)
		return
	}
	proof, err := parseSignatureProof(req.ClaimerType, req.Signature, req.PubKey)
	if err != nil {
		s.writeError(w, "passport_prove", err)
		return
	}
	if proof == nil {
		s.writeError(w, "passport_prove", fmt.Errorf("%w: signature proof required", passport.ErrInvalidInput))
		return
	}
	record, err := s.passport.ProveAddress(chi.URLParam(r, "nickname"), req.Address, *proof)
	if err != nil {
		s.writeError(w, "passport_prove", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePassportGet(w http.ResponseWriter, r *http.Request) {
	if s.passport == nil {
		http.NotFound(w, r)
		return
	}
	record, ok, err := s.passport.Get(chi.URLParam(r, "nickname"))
	if err != nil {
		s.writeError(w, "passport_get", err)
		return
	}
	if !ok {
		s.writeError(w, "passport_get", passport.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
