package auth

import (
	"encoding/hex"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

const MaxTokenLength = 200

// Token is an opaque bearer token which has passed the format check.
type Token string

func ParseToken(s string) (Token, error) {
	if s == "" {
		return "", &Failure{Reason: MissingToken}
	}
	if utf8.RuneCountInString(s) > MaxTokenLength {
		return "", &Failure{Reason: MalformedToken}
	}
	return Token(s), nil
}

// Fingerprint identifies the token in logs without revealing it.
func (t Token) Fingerprint() string {
	var sum = blake2b.Sum256([]byte(t))
	return hex.EncodeToString(sum[:8])
}
