package auth

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	verifierLength  = 64
	verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateVerifier returns a 64 character PKCE code verifier drawn from [A-Za-z0-9].
//
// Each character comes from one random byte reduced modulo 62.
func GenerateVerifier() (string, error) {
	b := make([]byte, verifierLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i := range b {
		b[i] = verifierCharset[int(b[i])%len(verifierCharset)]
	}
	return string(b), nil
}

// Challenge derives the S256 code challenge: base64url without padding of SHA-256(verifier).
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
