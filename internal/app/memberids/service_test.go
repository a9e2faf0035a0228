package memberids

import (
	"context"
	"reflect"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/clock"
	memplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/planrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

func seed(t *testing.T, repo *memplanrepo.Repo, id domain.PlanID, ids []domain.UserID, members ...domain.UserID) {
	t.Helper()
	base := time.Unix(100, 0).UTC()
	m := make(map[domain.UserID]domain.Membership, len(members))
	for i, uid := range members {
		role := domain.RoleEditor
		if i == 0 {
			role = domain.RoleOwner
		}
		m[uid] = domain.Membership{Role: role, JoinedAt: base.Add(time.Duration(i) * time.Second)}
	}
	if err := repo.Create(context.Background(), planrepo.Plan{ID: id, Members: m, MemberIDs: ids}); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestService_RepairPlan_RebuildsFromMembers(t *testing.T) {
	t.Parallel()

	repo := memplanrepo.NewRepo(memclock.NewManualClock(time.Unix(1000, 0).UTC()))
	seed(t, repo, "P1", []domain.UserID{"a"}, "a", "b")
	svc := NewService(repo)

	res, err := svc.RepairPlan(context.Background(), "P1")
	if err != nil {
		t.Fatalf("RepairPlan err=%v", err)
	}
	if !res.Repaired {
		t.Fatalf("expected repair, got %+v", res)
	}
	if !reflect.DeepEqual(res.OldMemberIDs, []domain.UserID{"a"}) || !reflect.DeepEqual(res.NewMemberIDs, []domain.UserID{"a", "b"}) {
		t.Fatalf("old=%v new=%v", res.OldMemberIDs, res.NewMemberIDs)
	}
	p, _ := repo.GetByID(context.Background(), "P1")
	if !reflect.DeepEqual(p.MemberIDs, []domain.UserID{"a", "b"}) {
		t.Fatalf("stored memberIds=%v", p.MemberIDs)
	}

	again, err := svc.RepairPlan(context.Background(), "P1")
	if err != nil {
		t.Fatalf("second RepairPlan err=%v", err)
	}
	if again.Repaired || again.Message != "memberIds already includes every member; no repair needed." {
		t.Fatalf("second run=%+v", again)
	}
	if !reflect.DeepEqual(again.OldMemberIDs, again.NewMemberIDs) {
		t.Fatalf("no-op run must report equal lists: %+v", again)
	}
}

func TestService_RepairPlan_IgnoresSurplus(t *testing.T) {
	t.Parallel()

	repo := memplanrepo.NewRepo(memclock.NewManualClock(time.Unix(1000, 0).UTC()))
	seed(t, repo, "P1", []domain.UserID{"a", "ghost"}, "a")
	svc := NewService(repo)

	res, err := svc.RepairPlan(context.Background(), "P1")
	if err != nil {
		t.Fatalf("RepairPlan err=%v", err)
	}
	if res.Repaired {
		t.Fatalf("surplus entries alone must not trigger a repair: %+v", res)
	}
	p, _ := repo.GetByID(context.Background(), "P1")
	if !reflect.DeepEqual(p.MemberIDs, []domain.UserID{"a", "ghost"}) {
		t.Fatalf("memberIds=%v", p.MemberIDs)
	}
}

func TestService_RepairPlan_Errors(t *testing.T) {
	t.Parallel()

	svc := NewService(memplanrepo.NewRepo(memclock.NewManualClock(time.Unix(1000, 0).UTC())))

	_, err := svc.RepairPlan(context.Background(), "  ")
	if ae, ok := apperr.As(err); !ok || ae.Code != apperr.CodeInvalidArgument {
		t.Fatalf("err=%v, want INVALID_ARGUMENT", err)
	}
	_, err = svc.RepairPlan(context.Background(), "missing")
	if ae, ok := apperr.As(err); !ok || ae.Code != apperr.CodeNotFound || ae.Message != "Plan not found." {
		t.Fatalf("err=%v, want NOT_FOUND", err)
	}
}

func TestService_RepairAll_OnlyTouchesInconsistentPlans(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	repo := memplanrepo.NewRepo(clk)
	seed(t, repo, "P1", []domain.UserID{"a"}, "a", "b")
	seed(t, repo, "P2", []domain.UserID{"c"}, "c")
	seed(t, repo, "P3", nil, "d", "e")
	svc := NewService(repo)

	fixes, err := svc.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll err=%v", err)
	}
	if len(fixes) != 2 {
		t.Fatalf("fixes=%+v", fixes)
	}

	clk.Advance(time.Hour)
	res, err := svc.RepairAll(context.Background())
	if err != nil {
		t.Fatalf("RepairAll err=%v", err)
	}
	if res.Repaired != 2 || res.Message != "Repaired memberIds on 2 plan(s)." {
		t.Fatalf("res=%+v", res)
	}
	if !reflect.DeepEqual(res.RepairedPlanIDs, []domain.PlanID{"P1", "P3"}) {
		t.Fatalf("repaired ids=%v", res.RepairedPlanIDs)
	}

	p2, _ := repo.GetByID(context.Background(), "P2")
	if p2.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("consistent plan must not be written")
	}
	p3, _ := repo.GetByID(context.Background(), "P3")
	if !reflect.DeepEqual(p3.MemberIDs, []domain.UserID{"d", "e"}) {
		t.Fatalf("p3 memberIds=%v", p3.MemberIDs)
	}

	again, err := svc.RepairAll(context.Background())
	if err != nil {
		t.Fatalf("second RepairAll err=%v", err)
	}
	if again.Repaired != 0 || again.Message != "Repaired memberIds on 0 plan(s)." {
		t.Fatalf("second run=%+v", again)
	}
}

func TestService_InspectPlan_DoesNotWrite(t *testing.T) {
	t.Parallel()

	repo := memplanrepo.NewRepo(memclock.NewManualClock(time.Unix(1000, 0).UTC()))
	seed(t, repo, "P1", []domain.UserID{"a"}, "a", "b")
	svc := NewService(repo)

	res, err := svc.InspectPlan(context.Background(), "P1")
	if err != nil {
		t.Fatalf("InspectPlan err=%v", err)
	}
	if !res.Repaired || !reflect.DeepEqual(res.NewMemberIDs, []domain.UserID{"a", "b"}) {
		t.Fatalf("res=%+v", res)
	}
	p, _ := repo.GetByID(context.Background(), "P1")
	if !reflect.DeepEqual(p.MemberIDs, []domain.UserID{"a"}) {
		t.Fatalf("inspect must not write; memberIds=%v", p.MemberIDs)
	}
}
