package memberids

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

// Service reconciles each plan's denormalized MemberIDs list with its membership map.
//
// Only membership keys missing from MemberIDs trigger a repair. Surplus MemberIDs entries
// without a membership are never detected on their own.
type Service struct {
	plans planrepo.Repository
}

func NewService(plans planrepo.Repository) *Service {
	return &Service{plans: plans}
}

type BulkResult struct {
	Repaired        int
	RepairedPlanIDs []domain.PlanID
	Message         string
}

type PlanResult struct {
	PlanID domain.PlanID
	// Repaired is false when MemberIDs already covered every member; Old and New are then equal.
	Repaired     bool
	OldMemberIDs []domain.UserID
	NewMemberIDs []domain.UserID
	Message      string
}

// FixFor returns the repair the plan needs, if any: the fix and whether it is required.
func FixFor(p planrepo.Plan) (planrepo.MemberIDsFix, bool) {
	if len(domain.MissingMemberIDs(p.Members, p.MemberIDs)) == 0 {
		return planrepo.MemberIDsFix{}, false
	}
	return planrepo.MemberIDsFix{PlanID: p.ID, MemberIDs: domain.MemberIDsFromMembers(p.Members)}, true
}

// ScanAll lists every plan and returns the fixes RepairAll would apply, without writing.
func (s *Service) ScanAll(ctx context.Context) ([]planrepo.MemberIDsFix, error) {
	ps, err := s.plans.List(ctx)
	if err != nil {
		return nil, apperr.Internal(ctx, "memberids.ScanAll", err)
	}
	var fixes []planrepo.MemberIDsFix
	for _, p := range ps {
		if fix, ok := FixFor(p); ok {
			fixes = append(fixes, fix)
		}
	}
	return fixes, nil
}

// RepairAll repairs every plan whose MemberIDs is missing a member, in one atomic batch.
func (s *Service) RepairAll(ctx context.Context) (BulkResult, error) {
	const op = "memberids.RepairAll"
	fixes, err := s.ScanAll(ctx)
	if err != nil {
		return BulkResult{}, err
	}

	ids := make([]domain.PlanID, 0, len(fixes))
	for _, f := range fixes {
		ids = append(ids, f.PlanID)
	}
	if len(fixes) > 0 {
		if err := s.plans.ReplaceMemberIDsBatch(ctx, fixes); err != nil {
			return BulkResult{}, apperr.Internal(ctx, op, err)
		}
	}

	slog.InfoContext(ctx, "member ids repaired", "repaired", len(ids))
	return BulkResult{
		Repaired:        len(ids),
		RepairedPlanIDs: ids,
		Message:         fmt.Sprintf("Repaired memberIds on %d plan(s).", len(ids)),
	}, nil
}

// InspectPlan reports what RepairPlan would do for one plan without writing.
func (s *Service) InspectPlan(ctx context.Context, planID domain.PlanID) (PlanResult, error) {
	res, _, err := s.inspect(ctx, "memberids.InspectPlan", planID)
	return res, err
}

// RepairPlan repairs a single plan, writing directly (no batch).
func (s *Service) RepairPlan(ctx context.Context, planID domain.PlanID) (PlanResult, error) {
	const op = "memberids.RepairPlan"
	res, fix, err := s.inspect(ctx, op, planID)
	if err != nil || !res.Repaired {
		return res, err
	}

	if err := s.plans.ReplaceMemberIDs(ctx, res.PlanID, fix.MemberIDs); err != nil {
		return PlanResult{}, apperr.Internal(ctx, op, err)
	}
	slog.InfoContext(ctx, "member ids repaired", "plan_id", res.PlanID, "old", res.OldMemberIDs, "new", res.NewMemberIDs)
	return res, nil
}

func (s *Service) inspect(ctx context.Context, op string, planID domain.PlanID) (PlanResult, planrepo.MemberIDsFix, error) {
	planID = domain.PlanID(strings.TrimSpace(string(planID)))
	if planID == "" {
		return PlanResult{}, planrepo.MemberIDsFix{}, apperr.InvalidArgument("planId is required.", map[string]any{"planId": "must be non-empty"})
	}

	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, planrepo.ErrNotFound) {
			return PlanResult{}, planrepo.MemberIDsFix{}, apperr.New(apperr.CodeNotFound, "Plan not found.")
		}
		return PlanResult{}, planrepo.MemberIDsFix{}, apperr.Internal(ctx, op, err)
	}

	old := append([]domain.UserID{}, p.MemberIDs...)
	fix, ok := FixFor(p)
	if !ok {
		return PlanResult{
			PlanID:       p.ID,
			OldMemberIDs: old,
			NewMemberIDs: old,
			Message:      "memberIds already includes every member; no repair needed.",
		}, fix, nil
	}
	return PlanResult{
		PlanID:       p.ID,
		Repaired:     true,
		OldMemberIDs: old,
		NewMemberIDs: fix.MemberIDs,
		Message:      fmt.Sprintf("Repaired memberIds for plan %s.", p.ID),
	}, fix, nil
}
