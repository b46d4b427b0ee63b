// ABOUTME: HS256-signed flash message tokens stored in a short-lived cookie
// ABOUTME: Messages survive exactly one redirect and cannot be forged by the client

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted session secret size in bytes.
const MinSecretLength = 32

// DefaultFlashTTL bounds how long a flash message stays readable.
const DefaultFlashTTL = 5 * time.Minute

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrShortSecret  = fmt.Errorf("secret must be at least %d bytes", MinSecretLength)
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind string `json:"k"` // "success" or "error"
	Text string `json:"t"`
}

type flashClaims struct {
	Messages []Flash `json:"msgs"`
	jwt.RegisteredClaims
}

// FlashSigner signs and verifies flash tokens with a shared HS256 secret.
type FlashSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFlashSigner creates a signer. The secret must be at least MinSecretLength bytes.
func NewFlashSigner(secret []byte) (*FlashSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrShortSecret
	}
	return &FlashSigner{secret: secret, ttl: DefaultFlashTTL, now: time.Now}, nil
}

// Sign encodes messages into a token valid for the signer's TTL.
func (s *FlashSigner) Sign(messages []Flash) (string, error) {
	now := s.now()
	claims := flashClaims{
		Messages: messages,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing flash token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token produced by Sign.
func (s *FlashSigner) Verify(tokenString string) ([]Flash, error) {
	var claims flashClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims.Messages, nil
}
