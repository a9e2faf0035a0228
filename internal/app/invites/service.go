package invites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

// Service implements the plan invitation callables.
//
// Every mutation is read-then-write without a transaction: two concurrent invitations to
// the same plan can both read the same MemberIDs and the later write wins.
type Service struct {
	plans     planrepo.Repository
	users     userrepo.Repository
	directory identity.Directory

	newToken func() string
}

func NewService(plans planrepo.Repository, users userrepo.Repository, directory identity.Directory) *Service {
	return &Service{
		plans:     plans,
		users:     users,
		directory: directory,
		newToken:  uuid.NewString,
	}
}

// SetNewTokenForTest overrides invite token generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTokenForTest(fn func() string) {
	if fn != nil {
		s.newToken = fn
	}
}

func (s *Service) InviteByEmail(ctx context.Context, caller domain.UserID, in InviteByEmailInput) (InviteByEmailResult, error) {
	const op = "invites.InviteByEmail"
	if caller == "" {
		return InviteByEmailResult{}, apperr.Unauthenticated()
	}
	planID := domain.PlanID(strings.TrimSpace(string(in.PlanID)))
	email := domain.NormalizeEmail(in.Email)
	if planID == "" || email == "" {
		return InviteByEmailResult{}, apperr.InvalidArgument("planId and email are required.", missingFields(map[string]bool{
			"planId": planID == "",
			"email":  email == "",
		}))
	}

	p, err := s.loadPlan(ctx, planID)
	if err != nil {
		return InviteByEmailResult{}, apperr.Internal(ctx, op, err)
	}
	if err := requireInviter(p, caller); err != nil {
		return InviteByEmailResult{}, err
	}

	target, err := s.directory.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return InviteByEmailResult{}, apperr.New(apperr.CodeNotFound, fmt.Sprintf("No user found with email %s.", email))
		}
		return InviteByEmailResult{}, apperr.Internal(ctx, op, err)
	}
	if _, ok := p.Members[target]; ok {
		return InviteByEmailResult{}, apperr.New(apperr.CodeAlreadyExists, "This user is already a member of the plan.")
	}

	memberIDs := domain.UnionMemberIDs(p.MemberIDs, target)
	if err := s.plans.AddMember(ctx, p.ID, target, domain.RoleEditor, memberIDs); err != nil {
		return InviteByEmailResult{}, apperr.Internal(ctx, op, err)
	}

	slog.InfoContext(ctx, "member invited by email", "plan_id", p.ID, "invited_by", caller, "user_id", target)
	return InviteByEmailResult{
		Success:       true,
		Message:       fmt.Sprintf("Successfully invited %s to the plan.", email),
		InvitedUserID: target,
	}, nil
}

func (s *Service) GetOrCreateInviteToken(ctx context.Context, caller domain.UserID, planID domain.PlanID) (InviteTokenResult, error) {
	const op = "invites.GetOrCreateInviteToken"
	if caller == "" {
		return InviteTokenResult{}, apperr.Unauthenticated()
	}
	planID = domain.PlanID(strings.TrimSpace(string(planID)))
	if planID == "" {
		return InviteTokenResult{}, apperr.InvalidArgument("planId is required.", map[string]any{"planId": "must be non-empty"})
	}

	p, err := s.loadPlan(ctx, planID)
	if err != nil {
		return InviteTokenResult{}, apperr.Internal(ctx, op, err)
	}
	if err := requireInviter(p, caller); err != nil {
		return InviteTokenResult{}, err
	}

	if p.InviteToken != nil && *p.InviteToken != "" {
		return InviteTokenResult{InviteToken: *p.InviteToken}, nil
	}

	// No uniqueness check against other plans: collisions of v4 UUIDs are not guarded.
	token := s.newToken()
	if err := s.plans.SetInviteToken(ctx, p.ID, token); err != nil {
		return InviteTokenResult{}, apperr.Internal(ctx, op, err)
	}
	slog.InfoContext(ctx, "invite token issued", "plan_id", p.ID, "issued_by", caller)
	return InviteTokenResult{InviteToken: token, Created: true}, nil
}

func (s *Service) RedeemInviteToken(ctx context.Context, caller domain.UserID, token string) (RedeemResult, error) {
	const op = "invites.RedeemInviteToken"
	if caller == "" {
		return RedeemResult{}, apperr.Unauthenticated()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return RedeemResult{}, apperr.InvalidArgument("token is required.", map[string]any{"token": "must be non-empty"})
	}

	// Token uniqueness across plans is assumed, not enforced: the first match wins.
	p, err := s.plans.FindByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, planrepo.ErrNotFound) {
			return RedeemResult{}, apperr.New(apperr.CodeNotFound, "Invalid or expired invite link.")
		}
		return RedeemResult{}, apperr.Internal(ctx, op, err)
	}

	if _, ok := p.Members[caller]; ok {
		return RedeemResult{PlanID: p.ID, AlreadyMember: true}, nil
	}

	memberIDs := domain.UnionMemberIDs(p.MemberIDs, caller)
	if err := s.plans.AddMember(ctx, p.ID, caller, domain.RoleEditor, memberIDs); err != nil {
		return RedeemResult{}, apperr.Internal(ctx, op, err)
	}
	if err := s.users.SetActivePlan(ctx, caller, p.ID); err != nil {
		return RedeemResult{}, apperr.Internal(ctx, op, err)
	}

	slog.InfoContext(ctx, "invite token redeemed", "plan_id", p.ID, "user_id", caller)
	return RedeemResult{PlanID: p.ID}, nil
}

func (s *Service) loadPlan(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, planrepo.ErrNotFound) {
			return planrepo.Plan{}, apperr.New(apperr.CodeNotFound, "Plan not found.")
		}
		return planrepo.Plan{}, err
	}
	return p, nil
}

func requireInviter(p planrepo.Plan, caller domain.UserID) error {
	m, ok := p.Members[caller]
	if !ok || !m.Role.CanInvite() {
		return apperr.New(apperr.CodePermissionDenied, "You must be an owner or editor of this plan.")
	}
	return nil
}

func missingFields(fields map[string]bool) map[string]any {
	out := map[string]any{}
	for name, missing := range fields {
		if missing {
			out[name] = "must be non-empty"
		}
	}
	return out
}
