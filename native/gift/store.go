package gift

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"cybergift/storage"
)

// Store persists campaign state in the underlying key-value database using
// RLP encoding. It implements the engine's state interface.
type Store struct {
	db storage.Database
}

// NewStore binds a store to the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedPool struct {
	InitialBalance  *big.Int
	CurrentBalance  *big.Int
	CoefficientUp   *big.Int
	CoefficientDown *big.Int
	Coefficient     *big.Int
	Claims          uint64
	Releases        uint64
	TargetClaim     uint64
}

type storedClaim struct {
	Amount     *big.Int
	Multiplier *big.Int
}

type storedRelease struct {
	Beneficiary     string
	Remaining       *big.Int
	Stage           uint64
	StageExpiration uint64
}

type storedRefer struct {
	Referred string
	Referrer string
}

type storedParams struct {
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
	ReleasePeriod   uint64
	PrimaryShareBps uint32
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("gift: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("gift: encode %q: %w", key, err)
	}
	return s.db.Put(key, encoded)
}

// PoolGet loads the singleton pool record.
func (s *Store) PoolGet() (*Pool, bool, error) {
	var stored storedPool
	ok, err := s.get(poolKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Pool{
		InitialBalance:  stored.InitialBalance,
		CurrentBalance:  stored.CurrentBalance,
		CoefficientUp:   stored.CoefficientUp,
		CoefficientDown: stored.CoefficientDown,
		Coefficient:     DecFromMantissa(stored.Coefficient),
		Claims:          stored.Claims,
		Releases:        stored.Releases,
		TargetClaim:     stored.TargetClaim,
	}, true, nil
}

// PoolPut persists the singleton pool record.
func (s *Store) PoolPut(pool *Pool) error {
	if pool == nil {
		return fmt.Errorf("%w: nil pool", ErrInvalidInput)
	}
	return s.put(poolKey, &storedPool{
		InitialBalance:  cloneBigInt(pool.InitialBalance),
		CurrentBalance:  cloneBigInt(pool.CurrentBalance),
		CoefficientUp:   cloneBigInt(pool.CoefficientUp),
		CoefficientDown: cloneBigInt(pool.CoefficientDown),
		Coefficient:     pool.Coefficient.Mantissa(),
		Claims:          pool.Claims,
		Releases:        pool.Releases,
		TargetClaim:     pool.TargetClaim,
	})
}

// ParamsGet loads the persisted campaign parameters.
func (s *Store) ParamsGet() (*Params, bool, error) {
	var stored storedParams
	ok, err := s.get(paramsKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Params{
		Owner:           stored.Owner,
		Treasury:        stored.Treasury,
		CommunityPool:   stored.CommunityPool,
		Passport:        stored.Passport,
		Denom:           stored.Denom,
		TargetClaim:     stored.TargetClaim,
		InitialBalance:  stored.InitialBalance,
		CoefficientUp:   stored.CoefficientUp,
		CoefficientDown: stored.CoefficientDown,
		Coefficient:     stored.Coefficient,
		ClaimBounty:     stored.ClaimBounty,
		ReleaseStages:   stored.ReleaseStages,
		ReleasePeriod:   secondsToDuration(stored.ReleasePeriod),
		PrimaryShareBps: stored.PrimaryShareBps,
	}, true, nil
}

// ParamsPut persists the campaign parameters.
func (s *Store) ParamsPut(p *Params) error {
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidInput)
	}
	return s.put(paramsKey, &storedParams{
		Owner:           p.Owner,
		Treasury:        p.Treasury,
		CommunityPool:   p.CommunityPool,
		Passport:        p.Passport,
		Denom:           p.Denom,
		TargetClaim:     p.TargetClaim,
		InitialBalance:  cloneBigInt(p.InitialBalance),
		CoefficientUp:   cloneBigInt(p.CoefficientUp),
		CoefficientDown: cloneBigInt(p.CoefficientDown),
		Coefficient:     cloneBigInt(p.Coefficient),
		ClaimBounty:     cloneBigInt(p.ClaimBounty),
		ReleaseStages:   p.ReleaseStages,
		ReleasePeriod:   uint64(p.ReleasePeriod.Seconds()),
		PrimaryShareBps: p.PrimaryShareBps,
	})
}

// MerkleRoot returns the registered hex-encoded eligibility root.
func (s *Store) MerkleRoot() (string, bool, error) {
	raw, err := s.db.Get(merkleRootKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(raw), true, nil
}

// SetMerkleRoot stores the hex-encoded eligibility root.
func (s *Store) SetMerkleRoot(root string) error {
	return s.db.Put(merkleRootKey, []byte(root))
}

// ClaimGet loads the claim record for a normalized identity.
func (s *Store) ClaimGet(identity string) (*ClaimRecord, bool, error) {
	var stored storedClaim
	ok, err := s.get(claimKey(identity), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &ClaimRecord{
		Amount:     stored.Amount,
		Multiplier: DecFromMantissa(stored.Multiplier),
	}, true, nil
}

// ClaimPut persists a claim record.
func (s *Store) ClaimPut(identity string, record *ClaimRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil claim record", ErrInvalidInput)
	}
	return s.put(claimKey(identity), &storedClaim{
		Amount:     cloneBigInt(record.Amount),
		Multiplier: record.Multiplier.Mantissa(),
	})
}

// ReleaseGet loads the release record for a normalized identity.
func (s *Store) ReleaseGet(identity string) (*ReleaseRecord, bool, error) {
	var stored storedRelease
	ok, err := s.get(releaseKey(identity), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	expiration := int64(0)
	if stored.StageExpiration > 0 {
		expiration = int64(stored.StageExpiration)
	}
	return &ReleaseRecord{
		Beneficiary:     stored.Beneficiary,
		Remaining:       stored.Remaining,
		Stage:           stored.Stage,
		StageExpiration: expiration,
	}, true, nil
}

// ReleasePut persists a release record.
func (s *Store) ReleasePut(identity string, record *ReleaseRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil release record", ErrInvalidInput)
	}
	expiration := uint64(0)
	if record.StageExpiration > 0 {
		expiration = uint64(record.StageExpiration)
	}
	return s.put(releaseKey(identity), &storedRelease{
		Beneficiary:     record.Beneficiary,
		Remaining:       cloneBigInt(record.Remaining),
		Stage:           record.Stage,
		StageExpiration: expiration,
	})
}

// ReferGet returns the edge recorded for a referred address.
func (s *Store) ReferGet(referred string) (*Refer, bool, error) {
	var stored storedRefer
	ok, err := s.get(referKey(referred), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &Refer{Referred: stored.Referred, Referrer: stored.Referrer}, true, nil
}

// ReferPut writes a referral edge plus its referrer-side index entry.
func (s *Store) ReferPut(edge *Refer) error {
	if edge == nil {
		return fmt.Errorf("%w: nil referral edge", ErrInvalidInput)
	}
	if err := s.put(referKey(edge.Referred), &storedRefer{Referred: edge.Referred, Referrer: edge.Referrer}); err != nil {
		return err
	}
	return s.db.Put(referIndexKey(edge.Referrer, edge.Referred), []byte{1})
}

// ReferList enumerates edges ordered by referred key with an exclusive
// start-after cursor.
func (s *Store) ReferList(startAfter string, limit int, ascending bool) ([]*Refer, error) {
	if limit <= 0 {
		limit = DefaultAllRefsLimit
	}
	var cursor []byte
	if startAfter != "" {
		cursor = referKey(startAfter)
	}
	out := make([]*Refer, 0, limit)
	err := s.scan(referPrefix, cursor, ascending, func(key, value []byte) (bool, error) {
		var stored storedRefer
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return false, fmt.Errorf("gift: decode referral %q: %w", key, err)
		}
		out = append(out, &Refer{Referred: stored.Referred, Referrer: stored.Referrer})
		return len(out) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReferredOf lists the addresses directly referred by the given referrer,
// ordered by key with an exclusive start-after cursor.
func (s *Store) ReferredOf(referrer, startAfter string, limit int, ascending bool) ([]string, error) {
	if limit <= 0 {
		limit = DefaultReferredLimit
	}
	prefix := referIndexScanPrefix(referrer)
	var cursor []byte
	if startAfter != "" {
		cursor = referIndexKey(referrer, startAfter)
	}
	out := make([]string, 0, limit)
	err := s.scan(prefix, cursor, ascending, func(key, _ []byte) (bool, error) {
		out = append(out, string(key[len(prefix):]))
		return len(out) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StageReleaseBump increments the release counter for a stage index.
func (s *Store) StageReleaseBump(stage uint64) error {
	count, err := s.StageReleaseCount(stage)
	if err != nil {
		return err
	}
	return s.db.Put(stageStatsKey(stage), []byte(strconv.FormatUint(count+1, 10)))
}

// StageReleaseCount returns the number of releases recorded for a stage.
func (s *Store) StageReleaseCount(stage uint64) (uint64, error) {
	raw, err := s.db.Get(stageStatsKey(stage))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	count, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("gift: corrupt stage counter: %w", err)
	}
	return count, nil
}

// scan walks keys under prefix in the requested order, skipping entries up to
// and including the cursor key, until fn returns false.
func (s *Store) scan(prefix, cursor []byte, ascending bool, fn func(key, value []byte) (bool, error)) error {
	it := s.db.NewIterator(prefix)
	defer it.Release()
	advance := it.Next
	seek := it.First
	if !ascending {
		advance = it.Prev
		seek = it.Last
	}
	for ok := seek(); ok; ok = advance() {
		key := it.Key()
		if cursor != nil {
			cmp := bytes.Compare(key, cursor)
			if ascending && cmp <= 0 {
				continue
			}
			if !ascending && cmp >= 0 {
				continue
			}
		}
		keep, err := fn(key, it.Value())
		if err != nil {
			return err
		}
		if !keep {
			break
		}
	}
	return nil
}

func secondsToDuration(seconds uint64) time.Duration {
	return time.Duration(seconds) * time.Second
}
