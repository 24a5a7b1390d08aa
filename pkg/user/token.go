package user

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/orcaust/orcaust/internal/apperror"
)

var ErrInvalidToken = apperror.New(apperror.Unauthenticated, "invalid or expired token")

// Claims carried by bearer tokens. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin"`
}

type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses an HS256 token and returns the user id from its subject.
func (v *TokenValidator) Validate(tokenStr string) (int, error) {
	if len(v.secret) == 0 {
		return 0, errors.New("token validator has no secret configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Sign issues a token for the given user. Used by the init-admin command and tests.
func (v *TokenValidator) Sign(u User, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.Id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Admin: u.Admin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
