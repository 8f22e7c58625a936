package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

const hashRounds = 500

// HashPassword derives a deterministic digest from a password and its salt.
// Each round re-mixes the original password and salt into the input, so a
// single-round collision does not shortcut the chain. The scheme (SHA3,
// 500 rounds, base64 output) must stay stable: stored credentials are only
// verifiable by recomputation.
func HashPassword(plain, salt string) string {
	digest := plain + salt
	for i := 0; i < hashRounds; i++ {
		sum := sha3.Sum512([]byte(digest + plain + salt))
		digest = base64.StdEncoding.EncodeToString(sum[:])
	}
	return digest
}

// VerifyPassword recomputes the digest with the stored salt and compares in
// constant time.
func VerifyPassword(plain, hashed, salt string) bool {
	computed := HashPassword(plain, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashed)) == 1
}

// NewSalt returns a high-entropy per-credential salt.
func NewSalt() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// NewJTI builds a unique token identifier from the user id and a random
// component. The jti is the revocation key, so uniqueness across all issued
// tokens matters more than unpredictability.
func NewJTI(userID int64) string {
	sum := sha3.Sum256([]byte(strconv.FormatInt(userID, 10) + uuid.NewString()))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Credential is the stored password triple. ChangedAt drives the
// password-rotation invalidation check in the session validator.
type Credential struct {
	HashedPassword string
	Salt           string
	ChangedAt      time.Time
}

// NewCredential hashes a plaintext password with a fresh salt.
func NewCredential(plain string) (Credential, error) {
	salt, err := NewSalt()
	if err != nil {
		return Credential{}, err
	}
	return Credential{
		HashedPassword: HashPassword(plain, salt),
		Salt:           salt,
		ChangedAt:      time.Now().UTC(),
	}, nil
}
