package planrepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
)

// Plan is the persistence shape used by the plan repository.
// It is not an HTTP DTO.
type Plan struct {
	ID domain.PlanID

	// Members is the authoritative membership map.
	Members map[domain.UserID]domain.Membership
	// MemberIDs is a denormalized projection of the Members key set. Writers keep it in
	// sync by convention, so it may drift.
	MemberIDs []domain.UserID

	// InviteToken is nil until a token is issued.
	InviteToken *string

	UpdatedAt time.Time
}

// MemberIDsFix replaces the member-id list of one plan.
type MemberIDsFix struct {
	PlanID    domain.PlanID
	MemberIDs []domain.UserID
}

// Repository provides access to persisted plans.
//
// Timestamps written by mutating methods (membership JoinedAt, UpdatedAt) are assigned by
// the store, not by the caller. Mutating methods return ErrNotFound when the plan does
// not exist. None of the mutating methods compare-and-swap against a previously read state.
type Repository interface {
	// Create stores a new plan. Plans are created outside this service; Create exists for
	// seeding and tests.
	Create(ctx context.Context, p Plan) error

	GetByID(ctx context.Context, id domain.PlanID) (Plan, error)

	// FindByInviteToken returns the first plan whose InviteToken equals token.
	FindByInviteToken(ctx context.Context, token string) (Plan, error)

	// List returns every plan in the collection.
	List(ctx context.Context) ([]Plan, error)

	// AddMember sets Members[uid] = {role, now}, replaces MemberIDs with memberIDs and
	// refreshes UpdatedAt in one single-document write.
	AddMember(ctx context.Context, id domain.PlanID, uid domain.UserID, role domain.Role, memberIDs []domain.UserID) error

	// SetInviteToken stores token on the plan and refreshes UpdatedAt.
	SetInviteToken(ctx context.Context, id domain.PlanID, token string) error

	// ReplaceMemberIDs overwrites MemberIDs and refreshes UpdatedAt.
	ReplaceMemberIDs(ctx context.Context, id domain.PlanID, memberIDs []domain.UserID) error

	// ReplaceMemberIDsBatch applies every fix atomically: either all plans are updated or none.
	ReplaceMemberIDsBatch(ctx context.Context, fixes []MemberIDsFix) error
}
