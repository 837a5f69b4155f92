// Package crypt hashes player passwords with DES crypt(3), the scheme the
// TinyMUD-derived servers accept in their PASS attribute.
package crypt

import (
	"strings"

	"github.com/cockroachdb/errors"
	descrypt "github.com/digitive/crypt"
)

// Salt is the fixed salt the servers use for stored passwords.
const Salt = "XX"

const hashLen = 13

const saltChars = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Crypt performs traditional Unix DES crypt(3).
func Crypt(password, salt string) (string, error) {
	result, err := descrypt.Crypt(password, salt)
	if err != nil {
		return "", errors.Wrap(err, "des crypt")
	}
	return result, nil
}

// Hash hashes a plaintext password with Salt.
func Hash(password string) (string, error) {
	return Crypt(password, Salt)
}

// CheckPassword verifies a password against a DES-encrypted hash.
func CheckPassword(password, storedHash string) bool {
	if len(storedHash) < 2 {
		return false
	}
	computed, err := Crypt(password, storedHash[:2])
	return err == nil && computed == storedHash
}

// IsHashed reports whether a stored password is already hashed: either a
// DES hash or a "$scheme$" string of a newer server.
func IsHashed(stored string) bool {
	if strings.HasPrefix(stored, "$") {
		return true
	}
	if len(stored) != hashLen {
		return false
	}
	for i := 0; i < len(stored); i++ {
		if strings.IndexByte(saltChars, stored[i]) < 0 {
			return false
		}
	}
	return true
}
