package cipher

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives length bytes of key material from a master secret
// using HKDF-SHA256. salt may be nil; info binds the derived key to its
// purpose.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrBadKey)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: length %d", ErrBadKey, length)
	}

	out := make([]byte, length)
	r := hkdf.New(sha256.New, secret, salt, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return out, nil
}

// DeriveStreamKey derives a key and nonce for a Stream of the given
// suite in one call, with the nonce domain-separated from the key.
func DeriveStreamKey(suite Suite, secret, salt []byte, info string) (key, nonce []byte, err error) {
	key, err = DeriveKey(secret, salt, []byte(info+"/key"), suite.KeySize())
	if err != nil {
		return nil, nil, err
	}
	nonce, err = DeriveKey(secret, salt, []byte(info+"/nonce"), suite.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return key, nonce, nil
}
