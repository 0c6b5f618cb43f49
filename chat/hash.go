package chat

import (
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and verifies password digests. Account passwords
// and private-room passwords go through the same hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// BcryptHasher is the default hasher.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(digest), err
}

func (h BcryptHasher) Verify(digest, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	return err == nil
}

// legacySalt matches the digest format of the original browser build, so a
// LegacyHasher can verify credentials in a store that build wrote.
const legacySalt = "_salted"

// LegacyHasher is the demo-grade reversible encoding carried over from the
// original system. It is not a cryptographic control; use BcryptHasher for
// anything holding real credentials.
type LegacyHasher struct{}

func (LegacyHasher) Hash(password string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(password + legacySalt)), nil
}

func (LegacyHasher) Verify(digest, password string) bool {
	encoded, _ := LegacyHasher{}.Hash(password)
	return encoded == digest
}
