package gift

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// LeafHash computes the membership leaf for an (identity, amount) pair: the
// SHA-256 of the identity string concatenated with the decimal amount string.
func LeafHash(identity string, amount *big.Int) [32]byte {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return sha256.Sum256([]byte(identity + amount.String()))
}

// VerifyProof folds the sibling hashes over the leaf and compares the result
// against the registered root. Sibling order inside each pair is irrelevant:
// the two hashes are sorted byte-wise ascending before hashing, so proofs are
// order-independent per level. Malformed hex or wrong-length digests yield
// ErrInvalidProof; a byte mismatch with the root yields ErrProofVerification.
func VerifyProof(rootHex string, identity string, amount *big.Int, proof []string) error {
	root, err := decodeDigest(rootHex)
	if err != nil {
		return err
	}
	hash := LeafHash(identity, amount)
	for _, p := range proof {
		sibling, err := decodeDigest(p)
		if err != nil {
			return err
		}
		hash = foldPair(hash, sibling)
	}
	if !bytes.Equal(hash[:], root[:]) {
		return ErrProofVerification
	}
	return nil
}

func foldPair(a, b [32]byte) [32]byte {
	buf := make([]byte, 0, 64)
	if bytes.Compare(a[:], b[:]) <= 0 {
		buf = append(buf, a[:]...)
		buf = append(buf, b[:]...)
	} else {
		buf = append(buf, b[:]...)
		buf = append(buf, a[:]...)
	}
	return sha256.Sum256(buf)
}

func decodeDigest(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%w: digest must be 32 bytes, got %d", ErrInvalidProof, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
