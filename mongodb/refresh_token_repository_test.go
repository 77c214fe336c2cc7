package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/mongodb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefreshRecord(tokenID, subjectID string, expiresAt time.Time) *domain.RefreshTokenRecord {
	tenant := "tenant-1"
	return &domain.RefreshTokenRecord{
		TokenID:   tokenID,
		SubjectID: subjectID,
		Email:     subjectID + "@example.com",
		Role:      domain.RoleMerchant,
		TenantID:  &tenant,
		TokenHash: "hash-" + tokenID,
		ExpiresAt: expiresAt.UTC().Truncate(time.Millisecond),
	}
}

func TestRefreshTokenRepository(t *testing.T) {
	db, cleanup := testutil.SetupTestMongoDB(t, "refresh_tokens")
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)

	t.Run("StoreAndGet", func(t *testing.T) {
		require.NoError(t, repo.StoreRefreshToken(ctx, newRefreshRecord("t1", "u1", future)))

		record, err := repo.GetRefreshToken(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "u1", record.SubjectID)
		assert.Equal(t, "hash-t1", record.TokenHash)
		require.NotNil(t, record.TenantID)
		assert.Equal(t, "tenant-1", *record.TenantID)
		assert.False(t, record.IsRevoked)
	})

	t.Run("UnknownAndExpired", func(t *testing.T) {
		_, err := repo.GetRefreshToken(ctx, "missing")
		assert.ErrorIs(t, err, serrors.ErrNotFound)

		require.NoError(t, repo.StoreRefreshToken(ctx, newRefreshRecord("old", "u1", time.Now().Add(-time.Minute))))
		_, err = repo.GetRefreshToken(ctx, "old")
		assert.ErrorIs(t, err, serrors.ErrNotFound)

		n, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 0)
	})

	t.Run("Revoke", func(t *testing.T) {
		require.NoError(t, repo.StoreRefreshToken(ctx, newRefreshRecord("t2", "u2", future)))
		require.NoError(t, repo.RevokeRefreshToken(ctx, "t2"))

		record, err := repo.GetRefreshToken(ctx, "t2")
		require.NoError(t, err)
		assert.True(t, record.IsRevoked)
		assert.NotNil(t, record.RevokedAt)

		assert.ErrorIs(t, repo.RevokeRefreshToken(ctx, "missing"), serrors.ErrNotFound)
	})

	t.Run("RevokeAllForSubject", func(t *testing.T) {
		require.NoError(t, repo.StoreRefreshToken(ctx, newRefreshRecord("t3", "u3", future)))
		require.NoError(t, repo.StoreRefreshToken(ctx, newRefreshRecord("t4", "u3", future)))

		n, err := repo.RevokeAllForSubject(ctx, "u3")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.RevokeAllForSubject(ctx, "u3")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		other, err := repo.GetRefreshToken(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, other.IsRevoked)
	})
}
