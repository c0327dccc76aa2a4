package gift

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

// testTree builds a two-level tree over four entitlements and returns the root
// plus per-leaf proofs, computed independently of the production fold.
type testEntry struct {
	identity string
	amount   *big.Int
}

func buildTestTree(t *testing.T, entries []testEntry) (string, map[string][]string) {
	t.Helper()
	if len(entries) != 4 {
		t.Fatalf("fixture expects 4 entries, got %d", len(entries))
	}
	leaves := make([][32]byte, len(entries))
	for i, e := range entries {
		leaves[i] = sha256.Sum256([]byte(e.identity + e.amount.String()))
	}
	pair := func(a, b [32]byte) [32]byte {
		buf := make([]byte, 0, 64)
		if string(a[:]) <= string(b[:]) {
			buf = append(append(buf, a[:]...), b[:]...)
		} else {
			buf = append(append(buf, b[:]...), a[:]...)
		}
		return sha256.Sum256(buf)
	}
	left := pair(leaves[0], leaves[1])
	right := pair(leaves[2], leaves[3])
	root := pair(left, right)

	proofs := map[string][]string{
		entries[0].identity: {hex.EncodeToString(leaves[1][:]), hex.EncodeToString(right[:])},
		entries[1].identity: {hex.EncodeToString(leaves[0][:]), hex.EncodeToString(right[:])},
		entries[2].identity: {hex.EncodeToString(leaves[3][:]), hex.EncodeToString(left[:])},
		entries[3].identity: {hex.EncodeToString(leaves[2][:]), hex.EncodeToString(left[:])},
	}
	return hex.EncodeToString(root[:]), proofs
}

func testEntries() []testEntry {
	return []testEntry{
		{"0x95ead3c504fab935fd7eadafb1e41c3c5e4cbbc5", big.NewInt(10_000_000)},
		{"0x4b0b8999c3d3c6e0a64d34f1ab2ba6bbcb1a11c7", big.NewInt(1_000_000)},
		{"cyber1qzrjelpdnvnvc4ns2jttt5tt2hjl45pzwvsnsf", big.NewInt(5_000_000)},
		{"cyber1e9zmvyvevduwzcy3q8zjhrg2mkea9c4yw5aji4", big.NewInt(190_000)},
	}
}

func TestVerifyProofAllLeaves(t *testing.T) {
	entries := testEntries()
	root, proofs := buildTestTree(t, entries)
	for _, e := range entries {
		if err := VerifyProof(root, e.identity, e.amount, proofs[e.identity]); err != nil {
			t.Fatalf("proof for %s rejected: %v", e.identity, err)
		}
	}
}

func TestVerifyProofWrongAmount(t *testing.T) {
	entries := testEntries()
	root, proofs := buildTestTree(t, entries)
	err := VerifyProof(root, entries[0].identity, big.NewInt(10_000_001), proofs[entries[0].identity])
	if !errors.Is(err, ErrProofVerification) {
		t.Fatalf("expected ErrProofVerification, got %v", err)
	}
}

func TestVerifyProofForeignIdentity(t *testing.T) {
	entries := testEntries()
	root, proofs := buildTestTree(t, entries)
	err := VerifyProof(root, "0x0000000000000000000000000000000000000000", big.NewInt(10_000_000), proofs[entries[0].identity])
	if !errors.Is(err, ErrProofVerification) {
		t.Fatalf("expected ErrProofVerification, got %v", err)
	}
}

func TestVerifyProofMalformedSibling(t *testing.T) {
	entries := testEntries()
	root, _ := buildTestTree(t, entries)
	cases := [][]string{
		{"zz"},
		{"abcd"},
		{""},
	}
	for _, proof := range cases {
		err := VerifyProof(root, entries[0].identity, entries[0].amount, proof)
		if !errors.Is(err, ErrInvalidProof) {
			t.Fatalf("proof %v: expected ErrInvalidProof, got %v", proof, err)
		}
	}
}

func TestVerifyProofBadRoot(t *testing.T) {
	entries := testEntries()
	_, proofs := buildTestTree(t, entries)
	err := VerifyProof("nothex", entries[0].identity, entries[0].amount, proofs[entries[0].identity])
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestVerifyProofSingleLeafTree(t *testing.T) {
	identity := "cyber1qzrjelpdnvnvc4ns2jttt5tt2hjl45pzwvsnsf"
	amount := big.NewInt(42)
	leaf := LeafHash(identity, amount)
	root := hex.EncodeToString(leaf[:])
	if err := VerifyProof(root, identity, amount, nil); err != nil {
		t.Fatalf("single leaf tree rejected: %v", err)
	}
}
