package cipher

import (
	"crypto/sha256"
	"fmt"
	"hash"
)

// Digest is a streaming hash context with the same explicit lifecycle
// as Stream: Init, any number of Updates, one Finalize.
//
// Digest is not safe for concurrent use.
type Digest struct {
	h     hash.Hash
	state State
	sum   []byte
}

// NewDigest creates an uninitialized SHA-256 digest context.
func NewDigest() *Digest {
	return &Digest{state: StateUninit}
}

// Init prepares the context for a new hash computation.
func (d *Digest) Init() error {
	if d.state != StateUninit {
		return fmt.Errorf("%w: init in state %s", ErrBadState, d.state)
	}
	d.h = sha256.New()
	d.state = StateKeyed
	return nil
}

// Update feeds data into the hash.
func (d *Digest) Update(p []byte) error {
	if d.state != StateKeyed {
		return fmt.Errorf("%w: update in state %s", ErrBadState, d.state)
	}
	d.h.Write(p)
	return nil
}

// Finalize completes the computation and returns the digest.
func (d *Digest) Finalize() ([]byte, error) {
	if d.state != StateKeyed {
		return nil, fmt.Errorf("%w: finalize in state %s", ErrBadState, d.state)
	}
	d.sum = d.h.Sum(nil)
	d.state = StateFinalized
	return append([]byte(nil), d.sum...), nil
}

// Sum returns the digest after Finalize.
func (d *Digest) Sum() ([]byte, error) {
	if d.state != StateFinalized {
		return nil, fmt.Errorf("%w: sum in state %s", ErrBadState, d.state)
	}
	return append([]byte(nil), d.sum...), nil
}

// Reset returns the context to the uninitialized state.
func (d *Digest) Reset() {
	d.h = nil
	d.sum = nil
	d.state = StateUninit
}

// SumSHA256 is the one-shot convenience.
func SumSHA256(p []byte) []byte {
	sum := sha256.Sum256(p)
	return sum[:]
}
