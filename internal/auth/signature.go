package auth

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidVerifyKey = errors.New("invalid verify key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// VerifySignature checks an ed25519 signature over the exact challenge
// bytes. Any bit flip in key, challenge, or signature fails.
func VerifySignature(verifyKey, challenge, signature []byte) error {
	if len(verifyKey) != ed25519.PublicKeySize {
		return ErrInvalidVerifyKey
	}
	if len(challenge) == 0 || len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(verifyKey), challenge, signature) {
		return ErrInvalidSignature
	}
	return nil
}
