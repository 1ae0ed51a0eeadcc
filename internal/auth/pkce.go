package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	verifierLength   = 64
)

// PKCESession is the verifier/challenge pair of one authorization attempt. It is never persisted.
type PKCESession struct {
	Verifier  string
	Challenge string
}

// NewPKCESession generates a fresh verifier and derives its S256 challenge.
func NewPKCESession() (PKCESession, error) {
	v, err := GenerateVerifier()
	if err != nil {
		return PKCESession{}, err
	}
	return PKCESession{Verifier: v, Challenge: Challenge(v)}, nil
}

// GenerateVerifier returns 64 characters drawn uniformly from the unreserved URL alphabet.
func GenerateVerifier() (string, error) {
	// bytes at or above this bound would skew the modulo toward the front of the alphabet
	bound := byte(256 - 256%len(verifierAlphabet))

	out := make([]byte, 0, verifierLength)
	buf := make([]byte, verifierLength)
	for len(out) < verifierLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate verifier: %w", err)
		}
		for _, b := range buf {
			if b >= bound {
				continue
			}
			out = append(out, verifierAlphabet[int(b)%len(verifierAlphabet)])
			if len(out) == verifierLength {
				break
			}
		}
	}
	return string(out), nil
}

// Challenge is base64url (no padding) of SHA-256(verifier).
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
