package domain

import (
	"context"
)

// RefreshTokenRepository is the token store collaborator. It makes refresh token revocation enforceable.
type RefreshTokenRepository interface {
	// StoreRefreshToken persists the record of a freshly issued refresh token.
	StoreRefreshToken(ctx context.Context, record *RefreshTokenRecord) error

	// GetRefreshToken returns the record for tokenID, or errors.ErrNotFound.
	GetRefreshToken(ctx context.Context, tokenID string) (*RefreshTokenRecord, error)

	// RevokeRefreshToken marks a single record revoked.
	RevokeRefreshToken(ctx context.Context, tokenID string) error

	// RevokeAllForSubject marks every record of subjectID revoked and returns how many changed.
	RevokeAllForSubject(ctx context.Context, subjectID string) (int, error)

	// DeleteExpired removes records past their expiry.
	DeleteExpired(ctx context.Context) (int, error)
}

// UserRepository is the user store collaborator.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	// GetUserByEmail returns errors.ErrNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}
