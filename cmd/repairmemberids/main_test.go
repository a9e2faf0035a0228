package main

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/clock"
	memplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/planrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

func newRepo(t *testing.T) *memplanrepo.Repo {
	t.Helper()
	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	repo := memplanrepo.NewRepo(clk)
	err := repo.Create(context.Background(), planrepo.Plan{
		ID: "P1",
		Members: map[domain.UserID]domain.Membership{
			"a": {Role: domain.RoleOwner, JoinedAt: time.Unix(1, 0).UTC()},
			"b": {Role: domain.RoleEditor, JoinedAt: time.Unix(2, 0).UTC()},
		},
		MemberIDs: []domain.UserID{"a"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return repo
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	o, err := parseFlags([]string{"--plan-id", "P1", "--dry-run"}, "postgres")
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o != (options{planID: "P1", backend: "postgres", dryRun: true}) {
		t.Fatalf("options=%+v", o)
	}

	if _, err := parseFlags(nil, "memory"); err == nil {
		t.Fatalf("expected memory backend to be rejected")
	}
	if _, err := parseFlags([]string{"--backend", "firestore"}, "memory"); err != nil {
		t.Fatalf("firestore backend: %v", err)
	}
}

func TestRun_DryRunDoesNotWrite(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	var out bytes.Buffer
	if err := run(context.Background(), memberids.NewService(repo), options{dryRun: true}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "1 plan(s) need repair") {
		t.Fatalf("output=%q", out.String())
	}
	p, _ := repo.GetByID(context.Background(), "P1")
	if !reflect.DeepEqual(p.MemberIDs, []domain.UserID{"a"}) {
		t.Fatalf("dry run wrote memberIds=%v", p.MemberIDs)
	}
}

func TestRun_RepairsAllAndSinglePlan(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	svc := memberids.NewService(repo)
	var out bytes.Buffer
	if err := run(context.Background(), svc, options{}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Repaired memberIds on 1 plan(s).") {
		t.Fatalf("output=%q", out.String())
	}

	out.Reset()
	if err := run(context.Background(), svc, options{planID: "P1"}, &out); err != nil {
		t.Fatalf("run single: %v", err)
	}
	if !strings.Contains(out.String(), "no repair needed") {
		t.Fatalf("output=%q", out.String())
	}

	if err := run(context.Background(), svc, options{planID: "missing"}, &out); err == nil {
		t.Fatalf("expected error for missing plan")
	}
}
