package contracttest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
	planrepoport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
	userrepoport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type PlanRepoFactory func(t *testing.T) (planrepoport.Repository, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.UserID("uid-1"),
		Callable: "redeemInviteToken",
		BodyHash: "hash-1",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"result":{"planId":"p1"}}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != string(rec.Body) || got.ContentType != rec.ContentType || got.StatusCode != 200 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Every fingerprint component participates in the lookup.
	for name, other := range map[string]idempotencyport.Fingerprint{
		"subject":  {Key: fp.Key, Subject: "uid-2", Callable: fp.Callable, BodyHash: fp.BodyHash},
		"callable": {Key: fp.Key, Subject: fp.Subject, Callable: "inviteByEmail", BodyHash: fp.BodyHash},
		"body":     {Key: fp.Key, Subject: fp.Subject, Callable: fp.Callable, BodyHash: "hash-2"},
	} {
		if _, ok, err := store.Get(ctx, other); err != nil || ok {
			t.Fatalf("%s: expected miss, ok=%v err=%v", name, ok, err)
		}
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"result":{"planId":"p2"}}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != string(rec2.Body) {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Prune removes only records created before the cutoff.
	stale := fp
	stale.Key = idempotencyport.Key("stale-" + uuid.NewString())
	fresh := fp
	fresh.Key = idempotencyport.Key("fresh-" + uuid.NewString())
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	staleRec := rec
	staleRec.CreatedAt = cutoff.Add(-time.Hour)
	freshRec := rec
	freshRec.CreatedAt = cutoff.Add(time.Hour)
	if err := store.Put(ctx, stale, staleRec); err != nil {
		t.Fatalf("Put stale: %v", err)
	}
	if err := store.Put(ctx, fresh, freshRec); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	n, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n < 1 {
		t.Fatalf("Prune removed %d records, want at least 1", n)
	}
	if _, ok, err := store.Get(ctx, stale); err != nil || ok {
		t.Fatalf("stale record survived prune: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, fresh); err != nil || !ok {
		t.Fatalf("fresh record pruned: ok=%v err=%v", ok, err)
	}
}

func RunPlanRepo(t *testing.T, newRepo PlanRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	owner := domain.UserID("owner-" + uuid.NewString())
	joined := time.Unix(1000, 0).UTC()
	p1 := domain.PlanID("plan-" + uuid.NewString())
	if err := repo.Create(ctx, planrepoport.Plan{
		ID:        p1,
		Members:   map[domain.UserID]domain.Membership{owner: {Role: domain.RoleOwner, JoinedAt: joined}},
		MemberIDs: []domain.UserID{owner},
	}); err != nil {
		t.Fatalf("Create p1: %v", err)
	}
	if err := repo.Create(ctx, planrepoport.Plan{ID: p1}); !errors.Is(err, planrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, p1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if m, ok := got.Members[owner]; !ok || m.Role != domain.RoleOwner || !m.JoinedAt.Equal(joined) {
		t.Fatalf("unexpected owner membership: %+v", got.Members)
	}
	if !reflect.DeepEqual(got.MemberIDs, []domain.UserID{owner}) {
		t.Fatalf("unexpected memberIds: %v", got.MemberIDs)
	}
	if got.InviteToken != nil {
		t.Fatalf("expected nil invite token, got %q", *got.InviteToken)
	}

	missing := domain.PlanID("plan-missing-" + uuid.NewString())
	if _, err := repo.GetByID(ctx, missing); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: expected ErrNotFound, got %v", err)
	}

	// AddMember writes the membership entry, the member-id list and a store-assigned joinedAt.
	editor := domain.UserID("editor-" + uuid.NewString())
	ids := []domain.UserID{owner, editor}
	if err := repo.AddMember(ctx, p1, editor, domain.RoleEditor, ids); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	got, err = repo.GetByID(ctx, p1)
	if err != nil {
		t.Fatalf("GetByID after AddMember: %v", err)
	}
	m, ok := got.Members[editor]
	if !ok || m.Role != domain.RoleEditor || m.JoinedAt.IsZero() {
		t.Fatalf("unexpected editor membership: %+v", got.Members)
	}
	if _, ok := got.Members[owner]; !ok {
		t.Fatalf("AddMember dropped existing member: %+v", got.Members)
	}
	if !reflect.DeepEqual(got.MemberIDs, ids) {
		t.Fatalf("memberIds=%v want %v", got.MemberIDs, ids)
	}
	if err := repo.AddMember(ctx, missing, editor, domain.RoleEditor, ids); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("AddMember missing: expected ErrNotFound, got %v", err)
	}

	// Invite tokens.
	token := uuid.NewString()
	if _, err := repo.FindByInviteToken(ctx, token); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("FindByInviteToken before set: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetInviteToken(ctx, p1, token); err != nil {
		t.Fatalf("SetInviteToken: %v", err)
	}
	found, err := repo.FindByInviteToken(ctx, token)
	if err != nil {
		t.Fatalf("FindByInviteToken: %v", err)
	}
	if found.ID != p1 || found.InviteToken == nil || *found.InviteToken != token {
		t.Fatalf("unexpected plan for token: %+v", found)
	}
	if err := repo.SetInviteToken(ctx, missing, token); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("SetInviteToken missing: expected ErrNotFound, got %v", err)
	}

	// ReplaceMemberIDs overwrites the list as given.
	if err := repo.ReplaceMemberIDs(ctx, p1, []domain.UserID{owner}); err != nil {
		t.Fatalf("ReplaceMemberIDs: %v", err)
	}
	got, _ = repo.GetByID(ctx, p1)
	if !reflect.DeepEqual(got.MemberIDs, []domain.UserID{owner}) {
		t.Fatalf("memberIds after replace=%v", got.MemberIDs)
	}
	if len(got.Members) != 2 {
		t.Fatalf("ReplaceMemberIDs must not touch members: %+v", got.Members)
	}
	if err := repo.ReplaceMemberIDs(ctx, missing, nil); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("ReplaceMemberIDs missing: expected ErrNotFound, got %v", err)
	}

	// Batch: all or nothing.
	p2 := domain.PlanID("plan-" + uuid.NewString())
	if err := repo.Create(ctx, planrepoport.Plan{
		ID:      p2,
		Members: map[domain.UserID]domain.Membership{owner: {Role: domain.RoleOwner, JoinedAt: joined}},
	}); err != nil {
		t.Fatalf("Create p2: %v", err)
	}
	err = repo.ReplaceMemberIDsBatch(ctx, []planrepoport.MemberIDsFix{
		{PlanID: p2, MemberIDs: []domain.UserID{owner}},
		{PlanID: missing, MemberIDs: []domain.UserID{owner}},
	})
	if err == nil {
		t.Fatalf("expected batch with missing plan to fail")
	}
	got, _ = repo.GetByID(ctx, p2)
	if len(got.MemberIDs) != 0 {
		t.Fatalf("failed batch must not apply partial writes: %v", got.MemberIDs)
	}

	if err := repo.ReplaceMemberIDsBatch(ctx, []planrepoport.MemberIDsFix{
		{PlanID: p1, MemberIDs: []domain.UserID{owner, editor}},
		{PlanID: p2, MemberIDs: []domain.UserID{owner}},
	}); err != nil {
		t.Fatalf("ReplaceMemberIDsBatch: %v", err)
	}
	got, _ = repo.GetByID(ctx, p1)
	if !reflect.DeepEqual(got.MemberIDs, []domain.UserID{owner, editor}) {
		t.Fatalf("p1 memberIds after batch=%v", got.MemberIDs)
	}
	got, _ = repo.GetByID(ctx, p2)
	if !reflect.DeepEqual(got.MemberIDs, []domain.UserID{owner}) {
		t.Fatalf("p2 memberIds after batch=%v", got.MemberIDs)
	}
	if err := repo.ReplaceMemberIDsBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	// List includes every created plan.
	ps, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	seen := map[domain.PlanID]bool{}
	for _, p := range ps {
		seen[p.ID] = true
	}
	if !seen[p1] || !seen[p2] {
		t.Fatalf("List missing created plans: %v", seen)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	uid := domain.UserID("uid-" + uuid.NewString())
	if _, err := repo.GetByID(ctx, uid); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: expected ErrNotFound, got %v", err)
	}

	email := uuid.NewString() + "@example.com"
	if err := repo.Create(ctx, userrepoport.User{UID: uid, Email: email}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	planID := domain.PlanID("plan-" + uuid.NewString())
	if err := repo.SetActivePlan(ctx, uid, planID); err != nil {
		t.Fatalf("SetActivePlan: %v", err)
	}
	u, err := repo.GetByID(ctx, uid)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Email != email {
		t.Fatalf("SetActivePlan must preserve other fields, email=%q", u.Email)
	}
	if u.ActivePlanID == nil || *u.ActivePlanID != planID {
		t.Fatalf("unexpected active plan: %v", u.ActivePlanID)
	}
	if u.UpdatedAt.IsZero() {
		t.Fatalf("expected store-assigned updatedAt")
	}

	// SetActivePlan creates the record when it does not exist yet.
	fresh := domain.UserID("uid-" + uuid.NewString())
	if err := repo.SetActivePlan(ctx, fresh, planID); err != nil {
		t.Fatalf("SetActivePlan on missing user: %v", err)
	}
	u, err = repo.GetByID(ctx, fresh)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if u.ActivePlanID == nil || *u.ActivePlanID != planID {
		t.Fatalf("unexpected active plan for fresh user: %v", u.ActivePlanID)
	}
}
