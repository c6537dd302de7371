package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/avatarctic/verification-service/configs"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

const (
	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// bytes at or above this are discarded so every symbol is equally likely
	tokenRejectAbove = 256 - 256%len(tokenAlphabet)

	MinGeneratedTokenLength = 16
	MinSuppliedTokenLength  = 6
)

// TokenCodec produces URL-safe alphanumeric tokens and their keyed digests.
type TokenCodec struct {
	length int
	key    []byte
}

// NewTokenCodec creates a codec whose digests are keyed by pepper.
func NewTokenCodec(length int, pepper string) (*TokenCodec, error) {
	if length < MinGeneratedTokenLength || length > configs.MaxTokenLength {
		return nil, fmt.Errorf("token length must be between %d and %d, got %d", MinGeneratedTokenLength, configs.MaxTokenLength, length)
	}
	if pepper == "" {
		return nil, fmt.Errorf("token pepper must not be empty")
	}
	key := blake2b.Sum256([]byte(pepper))
	return &TokenCodec{length: length, key: key[:]}, nil
}

func (c *TokenCodec) Generate() (string, error) {
	out := make([]byte, 0, c.length)
	buf := make([]byte, c.length*2)
	for len(out) < c.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == c.length {
				break
			}
		}
	}
	return string(out), nil
}

// Validate checks the lexical shape only: 1..MaxTokenLength ASCII letters and digits.
func (c *TokenCodec) Validate(token string) error {
	if token == "" || len(token) > configs.MaxTokenLength {
		return ErrInvalidToken
	}
	for i := 0; i < len(token); i++ {
		ch := token[i]
		if !(ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z') {
			return ErrInvalidToken
		}
	}
	return nil
}

func (c *TokenCodec) Digest(token string) string {
	h, err := blake2b.New256(c.key)
	if err != nil {
		// only possible with a key longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

var _ ports.TokenCodec = (*TokenCodec)(nil)
