package passport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"cybergift/crypto"
	"cybergift/storage"
)

var (
	ErrNotFound      = errors.New("passport: nickname not registered")
	ErrExists        = errors.New("passport: nickname already registered")
	ErrInvalidInput  = errors.New("passport: invalid input")
	ErrAddressProved = errors.New("passport: address already proved")
)

// Record is one identity passport: a nickname owned by a local account, with
// zero or more external addresses proved via signature.
type Record struct {
	Nickname        string
	Owner           string
	ProvedAddresses []string
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.ProvedAddresses = append([]string(nil), r.ProvedAddresses...)
	return &clone
}

var recordPrefix = []byte("passport/record/")

func recordKey(nickname string) []byte {
	buf := make([]byte, len(recordPrefix)+len(nickname))
	copy(buf, recordPrefix)
	copy(buf[len(recordPrefix):], nickname)
	return buf
}

// Registry persists passports and answers address-ownership queries. It
// satisfies the gift engine's oracle interface.
type Registry struct {
	db storage.Database
}

func NewRegistry(db storage.Database) *Registry {
	return &Registry{db: db}
}

func normalizeNickname(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

func (r *Registry) load(nickname string) (*Record, bool, error) {
	raw, err := r.db.Get(recordKey(nickname))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var record Record
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, false, fmt.Errorf("passport: decode %q: %w", nickname, err)
	}
	return &record, true, nil
}

func (r *Registry) store(record *Record) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("passport: encode %q: %w", record.Nickname, err)
	}
	return r.db.Put(recordKey(record.Nickname), encoded)
}

// Create registers a nickname for the given owner account.
func (r *Registry) Create(nickname, owner string) (*Record, error) {
	nickname = normalizeNickname(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname required", ErrInvalidInput)
	}
	owner = strings.TrimSpace(owner)
	if err := crypto.ValidateAddress(owner); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidInput, err)
	}
	if _, exists, err := r.load(nickname); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrExists
	}
	record := &Record{Nickname: nickname, Owner: owner}
	if err := r.store(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// ProveAddress attaches an external address to the passport after verifying a
// signature made by that address over the proof document.
func (r *Registry) ProveAddress(nickname, address string, proof crypto.SignatureProof) (*Record, error) {
	nickname = normalizeNickname(nickname)
	record, exists, err := r.load(nickname)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, fmt.Errorf("%w: address required", ErrInvalidInput)
	}
	for _, proved := range record.ProvedAddresses {
		if proved == address {
			return nil, ErrAddressProved
		}
	}
	if err := proof.Verify(address, ProofDoc(nickname, address)); err != nil {
		return nil, err
	}
	record.ProvedAddresses = append(record.ProvedAddresses, address)
	if err := r.store(record); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// ProofDoc is the canonical byte string signed when proving an address.
func ProofDoc(nickname, address string) []byte {
	return []byte(normalizeNickname(nickname) + ":" + strings.ToLower(strings.TrimSpace(address)))
}

// Get returns the passport registered under nickname.
func (r *Registry) Get(nickname string) (*Record, bool, error) {
	record, ok, err := r.load(normalizeNickname(nickname))
	if err != nil || !ok {
		return nil, ok, err
	}
	return record.Clone(), true, nil
}

// PassportSigned reports whether the passport under nickname has proved
// ownership of the given address.
func (r *Registry) PassportSigned(nickname, address string) (bool, error) {
	record, ok, err := r.load(normalizeNickname(nickname))
	if err != nil || !ok {
		return false, err
	}
	address = strings.ToLower(strings.TrimSpace(address))
	for _, proved := range record.ProvedAddresses {
		if proved == address {
			return true, nil
		}
	}
	return false, nil
}

// AddressByNickname resolves the owner account behind a nickname.
func (r *Registry) AddressByNickname(nickname string) (string, error) {
	record, ok, err := r.load(normalizeNickname(nickname))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return record.Owner, nil
}
