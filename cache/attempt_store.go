package cache

import (
	"context"
	"io"
	"time"

	"github.com/pilab-dev/shadow-auth/domain"
)

// AttemptUpdateFunc computes the next record from the current one (nil when absent).
// Returning changed=false leaves the store untouched; a nil next record with changed=true deletes it.
type AttemptUpdateFunc func(current *domain.LoginAttemptRecord) (next *domain.LoginAttemptRecord, changed bool)

// AttemptStore keeps login attempt records. Implementations make Update atomic per identifier.
type AttemptStore interface {
	io.Closer

	// Get returns the record of identifier, or nil when there is none.
	Get(ctx context.Context, identifier string) (*domain.LoginAttemptRecord, error)

	// Update runs fn as an atomic read-modify-write. A written record expires after ttl.
	// fn may be invoked more than once when a concurrent writer wins a race.
	Update(ctx context.Context, identifier string, ttl time.Duration, fn AttemptUpdateFunc) error

	// Delete removes the record of identifier.
	Delete(ctx context.Context, identifier string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
