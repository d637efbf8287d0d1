package verification

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	// TokenBytes - размер токена до hex-кодирования.
	TokenBytes = 32

	// TokenTTL - срок жизни ссылки подтверждения.
	TokenTTL = 24 * time.Hour
)

// Token - токен подтверждения. В БД хранится только Hash.
type Token struct {
	Plain string
	Hash  string
}

// NewToken генерирует случайный токен.
func NewToken() (Token, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return Token{}, fmt.Errorf("generate token: %w", err)
	}
	plain := hex.EncodeToString(b)
	return Token{Plain: plain, Hash: HashToken(plain)}, nil
}

// HashToken возвращает hex BLAKE2b-256 от токена.
func HashToken(plain string) string {
	sum := blake2b.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// WellFormed проверяет формат токена (64 hex-символа).
func WellFormed(plain string) bool {
	if len(plain) != TokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(plain)
	return err == nil
}
