package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/xnet-project/xnet-go/pkg/engine"
)

// Cipher errors.
var (
	ErrBadState  = errors.New("operation not valid in current cipher state")
	ErrBadKey    = errors.New("invalid key length")
	ErrBadNonce  = errors.New("invalid nonce length")
	ErrBadTag    = errors.New("invalid tag length")
	ErrBadSuite  = errors.New("unknown cipher suite")
	ErrTagNotSet = errors.New("decrypt finalize requires the tag")
)

// Suite selects the AEAD algorithm.
type Suite uint8

const (
	// AES256GCM is AES-256 in Galois/Counter Mode.
	AES256GCM Suite = 0

	// ChaCha20Poly1305 is the ChaCha20-Poly1305 AEAD.
	ChaCha20Poly1305 Suite = 1
)

// String returns the suite name.
func (s Suite) String() string {
	switch s {
	case AES256GCM:
		return "AES-256-GCM"
	case ChaCha20Poly1305:
		return "CHACHA20-POLY1305"
	default:
		return "UNKNOWN"
	}
}

// KeySize returns the key length in bytes for the suite.
func (s Suite) KeySize() int { return 32 }

// NonceSize returns the nonce length in bytes for the suite.
func (s Suite) NonceSize() int { return 12 }

// TagSize returns the authentication tag length in bytes.
func (s Suite) TagSize() int { return 16 }

// Direction selects whether a stream encrypts or decrypts.
type Direction uint8

const (
	// DirectionEncrypt seals plaintext.
	DirectionEncrypt Direction = 0
	// DirectionDecrypt opens ciphertext.
	DirectionDecrypt Direction = 1
)

// State is the stream lifecycle state.
type State uint8

const (
	// StateUninit: no key material installed.
	StateUninit State = 0
	// StateKeyed: keyed for one direction, accepting AAD and data.
	StateKeyed State = 1
	// StateFinalized: the operation completed; only tag access and
	// Reset are valid.
	StateFinalized State = 2
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninit:
		return "UNINIT"
	case StateKeyed:
		return "KEYED"
	case StateFinalized:
		return "FINALIZED"
	default:
		return "UNKNOWN"
	}
}

// Stream is a streaming AEAD context with a single, explicit state
// machine for both directions:
//
//	Uninit → Init → Keyed → (UpdateAAD)* → (Update)* → Finalize → Finalized
//
// The tag is readable only after an encrypt finalize, and must be set
// before a decrypt finalize. A tag mismatch on decrypt surfaces as
// engine.ErrAuthenticationFailed and never as a generic error.
//
// Stream is not safe for concurrent use.
type Stream struct {
	suite Suite
	state State
	dir   Direction

	aead  stdcipher.AEAD
	nonce []byte

	aadDone bool
	aad     bytes.Buffer
	data    bytes.Buffer

	tag []byte
}

// NewStream creates an uninitialized stream for the suite.
func NewStream(suite Suite) (*Stream, error) {
	if suite != AES256GCM && suite != ChaCha20Poly1305 {
		return nil, fmt.Errorf("%w: %d", ErrBadSuite, suite)
	}
	return &Stream{suite: suite, state: StateUninit}, nil
}

// Suite returns the stream's AEAD suite.
func (s *Stream) Suite() Suite { return s.suite }

// State returns the current lifecycle state.
func (s *Stream) State() State { return s.state }

// Init installs key material and keys the stream for one direction.
// Valid only in the uninitialized state; use Reset to rekey.
func (s *Stream) Init(dir Direction, key, nonce []byte) error {
	if s.state != StateUninit {
		return fmt.Errorf("%w: init in state %s", ErrBadState, s.state)
	}
	if len(key) != s.suite.KeySize() {
		return fmt.Errorf("%w: got %d, want %d", ErrBadKey, len(key), s.suite.KeySize())
	}
	if len(nonce) != s.suite.NonceSize() {
		return fmt.Errorf("%w: got %d, want %d", ErrBadNonce, len(nonce), s.suite.NonceSize())
	}

	aead, err := newAEAD(s.suite, key)
	if err != nil {
		return err
	}

	s.aead = aead
	s.nonce = append([]byte(nil), nonce...)
	s.dir = dir
	s.state = StateKeyed
	return nil
}

// UpdateAAD feeds additional authenticated data. Valid only while keyed
// and before the first Update call.
func (s *Stream) UpdateAAD(p []byte) error {
	if s.state != StateKeyed {
		return fmt.Errorf("%w: aad in state %s", ErrBadState, s.state)
	}
	if s.aadDone {
		return fmt.Errorf("%w: aad after data", ErrBadState)
	}
	s.aad.Write(p)
	return nil
}

// Update feeds plaintext (encrypt) or ciphertext (decrypt). Valid only
// while keyed.
func (s *Stream) Update(p []byte) error {
	if s.state != StateKeyed {
		return fmt.Errorf("%w: update in state %s", ErrBadState, s.state)
	}
	s.aadDone = true
	s.data.Write(p)
	return nil
}

// SetTag installs the expected authentication tag before a decrypt
// finalize.
func (s *Stream) SetTag(tag []byte) error {
	if s.state != StateKeyed || s.dir != DirectionDecrypt {
		return fmt.Errorf("%w: set tag in state %s", ErrBadState, s.state)
	}
	if len(tag) != s.suite.TagSize() {
		return fmt.Errorf("%w: got %d, want %d", ErrBadTag, len(tag), s.suite.TagSize())
	}
	s.tag = append([]byte(nil), tag...)
	return nil
}

// Finalize completes the operation. For encryption it returns the
// ciphertext and makes the tag available via Tag. For decryption it
// verifies the tag installed with SetTag and returns the plaintext, or
// engine.ErrAuthenticationFailed on mismatch.
func (s *Stream) Finalize() ([]byte, error) {
	if s.state != StateKeyed {
		return nil, fmt.Errorf("%w: finalize in state %s", ErrBadState, s.state)
	}

	switch s.dir {
	case DirectionEncrypt:
		sealed := s.aead.Seal(nil, s.nonce, s.data.Bytes(), s.aad.Bytes())
		split := len(sealed) - s.suite.TagSize()
		out := sealed[:split]
		s.tag = append([]byte(nil), sealed[split:]...)
		s.state = StateFinalized
		return out, nil

	case DirectionDecrypt:
		if s.tag == nil {
			return nil, ErrTagNotSet
		}
		sealed := append(s.data.Bytes(), s.tag...)
		out, err := s.aead.Open(nil, s.nonce, sealed, s.aad.Bytes())
		if err != nil {
			s.state = StateFinalized
			return nil, fmt.Errorf("%w: %v", engine.ErrAuthenticationFailed, err)
		}
		s.state = StateFinalized
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown direction", ErrBadState)
}

// Tag returns the authentication tag after an encrypt finalize.
func (s *Stream) Tag() ([]byte, error) {
	if s.state != StateFinalized || s.dir != DirectionEncrypt {
		return nil, fmt.Errorf("%w: tag in state %s", ErrBadState, s.state)
	}
	return append([]byte(nil), s.tag...), nil
}

// Reset returns the stream to the uninitialized state, dropping all
// key material and buffered data. The stream can then be re-keyed.
func (s *Stream) Reset() {
	s.aead = nil
	s.nonce = nil
	s.aadDone = false
	s.aad.Reset()
	s.data.Reset()
	s.tag = nil
	s.state = StateUninit
}

// Seal is the one-shot encryption convenience: it seals plaintext with
// aad and returns ciphertext and tag separately.
func Seal(suite Suite, key, nonce, aad, plaintext []byte) (ciphertext, tag []byte, err error) {
	s, err := NewStream(suite)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Init(DirectionEncrypt, key, nonce); err != nil {
		return nil, nil, err
	}
	if len(aad) > 0 {
		if err := s.UpdateAAD(aad); err != nil {
			return nil, nil, err
		}
	}
	if err := s.Update(plaintext); err != nil {
		return nil, nil, err
	}
	ciphertext, err = s.Finalize()
	if err != nil {
		return nil, nil, err
	}
	tag, err = s.Tag()
	return ciphertext, tag, err
}

// Open is the one-shot decryption convenience, verifying tag over
// ciphertext and aad.
func Open(suite Suite, key, nonce, aad, ciphertext, tag []byte) ([]byte, error) {
	s, err := NewStream(suite)
	if err != nil {
		return nil, err
	}
	if err := s.Init(DirectionDecrypt, key, nonce); err != nil {
		return nil, err
	}
	if len(aad) > 0 {
		if err := s.UpdateAAD(aad); err != nil {
			return nil, err
		}
	}
	if err := s.Update(ciphertext); err != nil {
		return nil, err
	}
	if err := s.SetTag(tag); err != nil {
		return nil, err
	}
	return s.Finalize()
}

// newAEAD constructs the backend AEAD for a suite.
func newAEAD(suite Suite, key []byte) (stdcipher.AEAD, error) {
	switch suite {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
		}
		return stdcipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	}
	return nil, fmt.Errorf("%w: %d", ErrBadSuite, suite)
}
