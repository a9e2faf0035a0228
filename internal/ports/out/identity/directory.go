package identity

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
)

// ErrNotFound indicates no identity is registered for the given email.
var ErrNotFound = errors.New("identity not found")

// Directory resolves identities owned by the identity provider.
type Directory interface {
	// LookupByEmail returns the uid of the single identity registered with email.
	LookupByEmail(ctx context.Context, email string) (domain.UserID, error)
}
