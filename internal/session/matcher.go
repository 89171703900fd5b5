package session

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Matcher checks a submitted access code.
type Matcher interface {
	Match(code string) bool
}

type plainMatcher struct {
	code []byte
}

// NewPlainMatcher compares against a plaintext code in constant time.
func NewPlainMatcher(code string) Matcher {
	return &plainMatcher{code: []byte(code)}
}

func (m *plainMatcher) Match(code string) bool {
	if len(m.code) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), m.code) == 1
}

type bcryptMatcher struct {
	hash []byte
}

// NewBcryptMatcher compares against a bcrypt hash of the code.
func NewBcryptMatcher(hash string) Matcher {
	return &bcryptMatcher{hash: []byte(hash)}
}

func (m *bcryptMatcher) Match(code string) bool {
	if code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.hash, []byte(code)) == nil
}

// NewMatcher prefers the hash when both are configured.
func NewMatcher(code, hash string) Matcher {
	if hash != "" {
		return NewBcryptMatcher(hash)
	}
	return NewPlainMatcher(code)
}
