package gift

import (
	"fmt"
	"strings"
)

// referralState is the subset of the store the referral forest needs.
type referralState interface {
	ReferGet(referred string) (*Refer, bool, error)
	ReferPut(*Refer) error
	ReferList(startAfter string, limit int, ascending bool) ([]*Refer, error)
	ReferredOf(referrer, startAfter string, limit int, ascending bool) ([]string, error)
}

// SetRef records a referred -> referrer edge. Self-referencing edges are
// rejected and the first write wins: an existing edge is never overwritten.
func SetRef(st referralState, referred, referrer string) error {
	referred = strings.TrimSpace(referred)
	referrer = strings.TrimSpace(referrer)
	if referred == "" || referrer == "" {
		return fmt.Errorf("%w: referred and referrer required", ErrInvalidInput)
	}
	if referred == referrer {
		return ErrSelfReferral
	}
	if _, exists, err := st.ReferGet(referred); err != nil {
		return err
	} else if exists {
		return ErrReferralExists
	}
	return st.ReferPut(&Refer{Referred: referred, Referrer: referrer})
}

// HasRef reports whether the address has a recorded referrer.
func HasRef(st referralState, addr string) (bool, error) {
	_, ok, err := st.ReferGet(addr)
	return ok, err
}

// RefOf returns the direct referrer of an address, if any.
func RefOf(st referralState, addr string) (string, bool, error) {
	edge, ok, err := st.ReferGet(addr)
	if err != nil || !ok {
		return "", false, err
	}
	return edge.Referrer, true, nil
}

// RefChain walks referrer-wards from addr, collecting up to depth ancestors
// ordered nearest first. The walk is iterative and hard-capped by depth, so a
// cycle introduced by a storage bug cannot hang a request. A non-positive
// depth falls back to DefaultRefDepth.
func RefChain(st referralState, addr string, depth int) ([]string, error) {
	if depth <= 0 {
		depth = DefaultRefDepth
	}
	chain := make([]string, 0, depth)
	cursor := addr
	for i := 0; i < depth; i++ {
		edge, ok, err := st.ReferGet(cursor)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		chain = append(chain, edge.Referrer)
		cursor = edge.Referrer
	}
	return chain, nil
}

// AllRefs pages through every recorded edge ordered by referred address.
func AllRefs(st referralState, startAfter string, limit int, ascending bool) ([]*Refer, error) {
	return st.ReferList(startAfter, limit, ascending)
}

// ReferredOf pages through the addresses directly referred by referrer.
func ReferredOf(st referralState, referrer, startAfter string, limit int, ascending bool) ([]string, error) {
	return st.ReferredOf(referrer, startAfter, limit, ascending)
}
