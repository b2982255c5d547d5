package security

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("token hashing failed")
	ErrTokenMismatch = errors.New("token does not match")
)

// TokenHasher issues one-time tokens and keeps only their hash.
type TokenHasher interface {
	Generate() (token string, hash string, err error)
	Compare(hash, token string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new token hasher using bcrypt
func NewBcryptHasher(cost int) TokenHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Generate() (string, string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	hash, err := bcrypt.GenerateFromPassword([]byte(token), b.cost)
	if err != nil {
		return "", "", ErrHashingFailed
	}
	return token, string(hash), nil
}

func (b *bcryptHasher) Compare(hash, token string) error {
	if hash == "" || token == "" {
		return ErrTokenMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrTokenMismatch
	}
	return nil
}
