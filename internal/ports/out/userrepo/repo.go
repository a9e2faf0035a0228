package userrepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
)

// User is the local mirror record of an identity-provider user.
type User struct {
	UID   domain.UserID
	Email string

	// ActivePlanID points at the plan most recently joined via invite token; nil means unset.
	ActivePlanID *domain.PlanID

	UpdatedAt time.Time
}

// Repository provides access to per-user mirror records.
type Repository interface {
	// Create stores a mirror record. Records are normally created by sign-up flows
	// outside this service.
	Create(ctx context.Context, u User) error

	GetByID(ctx context.Context, uid domain.UserID) (User, error)

	// SetActivePlan upserts the user's record with merge semantics: ActivePlanID and
	// UpdatedAt (store-assigned) are written, every other field is preserved.
	SetActivePlan(ctx context.Context, uid domain.UserID, planID domain.PlanID) error
}
