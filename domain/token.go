package domain

import "time"

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// IssueClaims is the identity handed to the token service after a successful login.
type IssueClaims struct {
	SubjectID string
	Email     string
	Role      Role
	// TenantID is nil for platform-level principals.
	TenantID *string
}

// TokenClaims represents the identity embedded in a verified token.
type TokenClaims struct {
	SubjectID string    `json:"subjectId"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role,omitempty"`
	TenantID  *string   `json:"tenantId,omitempty"`
	TokenID   string    `json:"tokenId"` // Shared by the access/refresh pair of one issuance
	TokenType TokenType `json:"type"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenPair is the result of an issuance.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn"`
}

// AccessGrant is the result of a refresh.
type AccessGrant struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// VerificationResult is the only shape other services should depend on.
type VerificationResult struct {
	Valid     bool    `json:"valid"`
	SubjectID string  `json:"subjectId,omitempty"`
	Role      Role    `json:"role,omitempty"`
	TenantID  *string `json:"tenantId,omitempty"`
}

// RefreshTokenRecord is the server-side record of an issued refresh token.
type RefreshTokenRecord struct {
	TokenID   string     `bson:"_id"                  json:"tokenId"`
	SubjectID string     `bson:"subject_id"           json:"subjectId"`
	Email     string     `bson:"email"                json:"email"`
	Role      Role       `bson:"role"                 json:"role"`
	TenantID  *string    `bson:"tenant_id,omitempty"  json:"tenantId,omitempty"`
	TokenHash string     `bson:"token_hash"           json:"-"`
	ExpiresAt time.Time  `bson:"expires_at"           json:"expiresAt"`
	CreatedAt time.Time  `bson:"created_at"           json:"createdAt"`
	IsRevoked bool       `bson:"is_revoked"           json:"isRevoked"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`
}

// Claims returns the claim snapshot held by the record.
func (r *RefreshTokenRecord) Claims() IssueClaims {
	return IssueClaims{
		SubjectID: r.SubjectID,
		Email:     r.Email,
		Role:      r.Role,
		TenantID:  r.TenantID,
	}
}
