package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Key IDs of the two signing keys held by a TokenSigner.
const (
	AccessKeyID  = "access"
	RefreshKeyID = "refresh"
)

var (
	ErrInvalidKeyID = errors.New("invalid key id")
	ErrEmptySecret  = errors.New("empty signing secret")
)

// TokenSigner signs and verifies HS256 tokens with secrets selected by key ID.
type TokenSigner struct {
	keys map[string][]byte
}

// NewTokenSigner creates a new Signer instance
func NewTokenSigner() *TokenSigner {
	return &TokenSigner{
		keys: make(map[string][]byte),
	}
}

// AddKeySigner registers secretKey under keyID, replacing any previous key.
func (s *TokenSigner) AddKeySigner(keyID, secretKey string) error {
	if secretKey == "" {
		return fmt.Errorf("%w for key %q", ErrEmptySecret, keyID)
	}
	s.keys[keyID] = []byte(secretKey)

	return nil
}

// HasKey reports whether keyID is registered.
func (s *TokenSigner) HasKey(keyID string) bool {
	_, ok := s.keys[keyID]
	return ok
}

// Sign signs claims with the key registered under keyID. The key ID is carried in the kid header.
func (s *TokenSigner) Sign(claims jwt.Claims, keyID string) (string, error) {
	secret, ok := s.keys[keyID]
	if !ok {
		return "", ErrInvalidKeyID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Keyfunc returns a jwt.Keyfunc that only accepts HMAC tokens and always resolves keyID,
// whatever kid the token claims.
func (s *TokenSigner) Keyfunc(keyID string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		secret, ok := s.keys[keyID]
		if !ok {
			return nil, ErrInvalidKeyID
		}
		return secret, nil
	}
}
