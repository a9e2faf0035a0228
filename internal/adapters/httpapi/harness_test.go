package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	memclock "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/idempotency"
	memidentity "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/identity"
	memplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/planrepo"
	memuserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/invites"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

type testEnv struct {
	clk     *memclock.ManualClock
	plans   *memplanrepo.Repo
	users   *memuserrepo.Repo
	dir     *memidentity.Directory
	invites *invites.Service
	srv     *Server
	reg     *prometheus.Registry
	handler http.Handler
}

// newTestEnv serves the callables over in-memory stores with plan P1 owned by owner1
// and new@x.com registered as U2. Callers are chosen with X-Debug-Subject unless opts
// supplies another auth middleware.
func newTestEnv(t *testing.T, opts RouterOptions) *testEnv {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	env := &testEnv{
		clk:   clk,
		plans: memplanrepo.NewRepo(clk),
		users: memuserrepo.NewRepo(clk),
		dir:   memidentity.NewDirectory(),
		reg:   prometheus.NewRegistry(),
	}
	if err := env.plans.Create(context.Background(), planrepo.Plan{
		ID:        "P1",
		Members:   map[domain.UserID]domain.Membership{"owner1": {Role: domain.RoleOwner, JoinedAt: clk.Now()}},
		MemberIDs: []domain.UserID{"owner1"},
	}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	env.dir.Register("new@x.com", "U2")

	env.invites = invites.NewService(env.plans, env.users, env.dir)
	env.srv = NewServer(env.invites, memberids.NewService(env.plans), memidempotency.NewStore(), clk)

	if opts.AuthMiddleware == nil {
		opts.AuthMiddleware = NewDevAuthMiddleware("")
	}
	opts.Metrics = NewMetrics(env.reg)
	opts.Gatherer = env.reg
	env.handler = NewRouter(env.srv, opts)
	return env
}

type callOpts struct {
	subject        string
	idempotencyKey string
	authorization  string
}

func (e *testEnv) call(t *testing.T, name string, data any, o callOpts) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return e.raw(t, name, b, o)
}

func (e *testEnv) raw(t *testing.T, name string, body []byte, o callOpts) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/"+name, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if o.subject != "" {
		req.Header.Set("X-Debug-Subject", o.subject)
	}
	if o.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", o.idempotencyKey)
	}
	if o.authorization != "" {
		req.Header.Set("Authorization", o.authorization)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResult[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rec.Code, rec.Body.String())
	}
	var env struct {
		Result T `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode result: %v body=%s", err, rec.Body.String())
	}
	return env.Result
}

func requireCallableError(t *testing.T, rec *httptest.ResponseRecorder, wantHTTP int, wantStatus string) errorResponse {
	t.Helper()
	if rec.Code != wantHTTP {
		t.Fatalf("http status=%d want=%d body=%s", rec.Code, wantHTTP, rec.Body.String())
	}
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rec.Body.String())
	}
	if er.Error.Status != wantStatus {
		t.Fatalf("error.status=%q want=%q body=%s", er.Error.Status, wantStatus, rec.Body.String())
	}
	if rid, err := er.Error.RequestID.Get(); err != nil || rid == "" {
		t.Fatalf("expected requestId to be set; body=%s", rec.Body.String())
	}
	return er
}
