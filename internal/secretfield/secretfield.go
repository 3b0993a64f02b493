// Package secretfield seals guest contact details into versioned
// envelopes so they are not stored in clear text. Envelopes look like
// "sealed:v1:<base64 nonce||ciphertext>"; anything else is treated as a
// plain value and passed through unchanged.
package secretfield

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const envelopePrefix = "sealed:v1:"

type Codec struct {
	key [32]byte
}

// NewCodec builds a codec from a base64-encoded 32-byte key.
func NewCodec(encodedKey string) (*Codec, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode field encryption key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("field encryption key must be 32 bytes, got %d", len(raw))
	}

	var codec Codec
	copy(codec.key[:], raw)
	return &codec, nil
}

// Seal encrypts a value into an envelope.
func (c *Codec) Seal(value string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &c.key)
	return envelopePrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts an envelope. Non-envelope values are returned as-is so
// rows written before encryption was enabled keep working.
func (c *Codec) Open(value string) (string, error) {
	if !IsEnvelope(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, envelopePrefix))
	if err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("envelope too short")
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("open envelope: decryption failed")
	}
	return string(plain), nil
}

// IsEnvelope reports whether a stored value is a sealed envelope.
func IsEnvelope(value string) bool {
	return strings.HasPrefix(value, envelopePrefix)
}
