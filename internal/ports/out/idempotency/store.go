package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a callable invocation for replay purposes:
// key + caller + callable name + request data hash.
type Fingerprint struct {
	Key      Key
	Subject  domain.UserID
	Callable string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// Prune deletes records created before cutoff and reports how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
