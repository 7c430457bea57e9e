package service

import (
	"errors"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// PasswordParams controls argon2id cost for newly created hashes.
var PasswordParams = argon2id.DefaultParams

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// HashPassword derives an argon2id hash for storage.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, PasswordParams)
}

// VerifyPassword compares a plaintext password against an argon2id or legacy bcrypt hash.
func VerifyPassword(password, hash string) (bool, error) {
	if isBcryptHash(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return argon2id.ComparePasswordAndHash(password, hash)
}

// burnPasswordCheck spends the same work as a real comparison so unknown emails
// cannot be told apart from wrong passwords by latency.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = argon2id.CreateHash("gema-unknown-identity", PasswordParams)
	})
	if dummyHash == "" {
		return
	}
	_, _ = argon2id.ComparePasswordAndHash(password, dummyHash)
}

func isBcryptHash(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}
