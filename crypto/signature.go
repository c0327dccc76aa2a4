package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for cosmos address derivation
)

// ClaimerType tags the signature scheme used to prove ownership of a claiming
// address.
type ClaimerType string

const (
	ClaimerTypeEthereum ClaimerType = "ethereum"
	ClaimerTypeCosmos   ClaimerType = "cosmos"
)

var (
	ErrUnknownClaimerType = errors.New("crypto: unknown claimer type")
	ErrNotEligible        = errors.New("crypto: address ownership proof failed")
)

// SignatureProof carries a claimant-supplied ownership proof. The verification
// algorithm is a pure function of Type: Ethereum proofs are recovered from the
// personal-sign envelope, Cosmos proofs verify against the declared public key
// and re-derive the bech32 address from it.
type SignatureProof struct {
	Type      ClaimerType
	Signature []byte
	// PubKey is the 33-byte compressed secp256k1 public key. Only set for
	// cosmos proofs; ethereum proofs recover the key from the signature.
	PubKey []byte
}

// Verify checks that the proof demonstrates control over claimedAddress for
// the given message bytes.
func (p SignatureProof) Verify(claimedAddress string, message []byte) error {
	switch p.Type {
	case ClaimerTypeEthereum:
		return verifyEthereum(claimedAddress, message, p.Signature)
	case ClaimerTypeCosmos:
		return verifyCosmos(claimedAddress, message, p.PubKey, p.Signature)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownClaimerType, p.Type)
	}
}

// PersonalSignHash applies the "\x19Ethereum Signed Message" envelope and
// returns the keccak256 digest signed by wallets.
func PersonalSignHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}

func verifyEthereum(claimedAddress string, message, signature []byte) error {
	if len(signature) != 65 {
		return fmt.Errorf("%w: signature must be 65 bytes, got %d", ErrNotEligible, len(signature))
	}
	expected, err := DecodeEthereumAddress(claimedAddress)
	if err != nil {
		return err
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	switch sig[64] {
	case 27, 28:
		sig[64] -= 27
	case 0, 1:
	default:
		return fmt.Errorf("%w: invalid recovery id %d", ErrNotEligible, sig[64])
	}
	hash := PersonalSignHash(message)
	pubkey, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotEligible, err)
	}
	recovered := ethcrypto.PubkeyToAddress(*pubkey)
	if !bytes.Equal(recovered.Bytes(), expected) {
		return fmt.Errorf("%w: signer is not the claimed address", ErrNotEligible)
	}
	return nil
}

func verifyCosmos(claimedAddress string, message, pubkey, signature []byte) error {
	if len(pubkey) != 33 {
		return fmt.Errorf("%w: compressed public key must be 33 bytes, got %d", ErrNotEligible, len(pubkey))
	}
	if len(signature) != 64 {
		return fmt.Errorf("%w: signature must be 64 bytes, got %d", ErrNotEligible, len(signature))
	}
	digest := sha256.Sum256(message)
	if !ethcrypto.VerifySignature(pubkey, digest[:], signature) {
		return fmt.Errorf("%w: secp256k1 verification failed", ErrNotEligible)
	}
	derived, err := CosmosAddressFromPubKey(pubkey)
	if err != nil {
		return err
	}
	expected, err := DecodeAddress(strings.TrimSpace(claimedAddress))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotEligible, err)
	}
	if !bytes.Equal(derived, expected.Bytes()) {
		return fmt.Errorf("%w: public key does not derive the claimed address", ErrNotEligible)
	}
	return nil
}

// CosmosAddressFromPubKey derives the 20-byte account address from a
// compressed secp256k1 public key (ripemd160 over sha256, the cosmos
// convention).
func CosmosAddressFromPubKey(pubkey []byte) ([]byte, error) {
	if len(pubkey) != 33 {
		return nil, fmt.Errorf("compressed public key must be 33 bytes, got %d", len(pubkey))
	}
	sha := sha256.Sum256(pubkey)
	hasher := ripemd160.New()
	if _, err := hasher.Write(sha[:]); err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}

// DecodeEthereumAddress parses a 0x-prefixed, 42-character hex address into
// its raw 20-byte form. Case is ignored.
func DecodeEthereumAddress(input string) ([]byte, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) != 42 {
		return nil, fmt.Errorf("ethereum address must be 42 characters long, got %d", len(trimmed))
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return nil, fmt.Errorf("ethereum address must start with 0x")
	}
	raw, err := hex.DecodeString(trimmed[2:])
	if err != nil {
		return nil, fmt.Errorf("ethereum address hex decoding: %w", err)
	}
	return raw, nil
}
