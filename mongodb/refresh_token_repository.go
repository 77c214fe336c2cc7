package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RefreshTokenRepository implements domain.RefreshTokenRepository on MongoDB.
// Expired documents are removed by a TTL index on expires_at.
type RefreshTokenRepository struct {
	coll *mongo.Collection
}

var _ domain.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

// NewRefreshTokenRepository creates the repository and ensures its indexes.
func NewRefreshTokenRepository(ctx context.Context, db *mongo.Database) (*RefreshTokenRepository, error) {
	repo := &RefreshTokenRepository{
		coll: db.Collection(RefreshTokensCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create refresh token indexes")
	}

	return repo, nil
}

func (r *RefreshTokenRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}, {Key: "is_revoked", Value: 1}},
			Options: options.Index().SetName("subject_revoked"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for refresh tokens collection: %w", err)
	}
	log.Debug().Msg("Indexes for refresh tokens collection ensured.")

	return nil
}

// StoreRefreshToken implements domain.RefreshTokenRepository.
func (r *RefreshTokenRepository) StoreRefreshToken(ctx context.Context, record *domain.RefreshTokenRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken implements domain.RefreshTokenRepository. Expired records count as unknown.
func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, tokenID string) (*domain.RefreshTokenRecord, error) {
	var record domain.RefreshTokenRecord
	err := r.coll.FindOne(ctx, bson.M{
		"_id":        tokenID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, serrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &record, nil
}

// RevokeRefreshToken implements domain.RefreshTokenRepository.
func (r *RefreshTokenRepository) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": tokenID},
		bson.M{"$set": bson.M{"is_revoked": true, "revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return serrors.ErrNotFound
	}

	return nil
}

// RevokeAllForSubject implements domain.RefreshTokenRepository.
func (r *RefreshTokenRepository) RevokeAllForSubject(ctx context.Context, subjectID string) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"subject_id": subjectID, "is_revoked": false},
		bson.M{"$set": bson.M{"is_revoked": true, "revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens of subject: %w", err)
	}

	return int(res.ModifiedCount), nil
}

// DeleteExpired implements domain.RefreshTokenRepository. The TTL index does the same lazily.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	return int(res.DeletedCount), nil
}
