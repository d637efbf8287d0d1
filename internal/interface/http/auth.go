package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
}

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// Claims are the access-token claims issued by the auth provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with the provider's shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. An empty audience skips the aud check.
func NewJWTVerifier(secret, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Verify parses token and returns the caller. The subject must be a UUID.
func (v *JWTVerifier) Verify(token string) (Principal, error) {
	if len(v.secret) == 0 {
		return Principal{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	claims := new(Claims)
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return Principal{UserID: id.String(), Email: claims.Email}, nil
}
