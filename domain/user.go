package domain

import "time"

// UserStatus defines the possible statuses of a user account.
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusLocked  UserStatus = "LOCKED"
	UserStatusPending UserStatus = "PENDING_ACTIVATION"
)

// User represents a user able to log in.
type User struct {
	ID           string     `bson:"_id,omitempty"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	Role         Role       `bson:"role"`
	TenantID     *string    `bson:"tenant_id,omitempty"`
	Status       UserStatus `bson:"status"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

// IssueClaims returns the claims a token issued for u carries.
func (u *User) IssueClaims() IssueClaims {
	return IssueClaims{
		SubjectID: u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TenantID:  u.TenantID,
	}
}
