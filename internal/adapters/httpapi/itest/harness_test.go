package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/idempotency"
	memidentity "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/identity"
	memplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/planrepo"
	memuserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/idempotency"
	pgidentity "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/identity"
	pgplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/planrepo"
	postgres_testutil "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/invites"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
	identityport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
	planrepoport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
	userrepoport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client

	plans planrepoport.Repository
	users userrepoport.Repository
	// register makes email resolvable to uid through the backend's identity directory.
	register func(t *testing.T, email string, uid domain.UserID)
	// suffix keeps ids unique when backends share state across runs.
	suffix string
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ts := &testServer{suffix: uuid.NewString()[:8]}

	var (
		directory identityport.Directory
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		ts.plans = pgplanrepo.NewRepo(pool)
		ts.users = pguserrepo.NewRepo(pool)
		directory = pgidentity.NewDirectory(pool)
		idemStore = pgidempotency.NewStore(pool)
		ts.register = func(t *testing.T, email string, uid domain.UserID) {
			t.Helper()
			if err := ts.users.Create(context.Background(), userrepoport.User{UID: uid, Email: email}); err != nil {
				t.Fatalf("seed user: %v", err)
			}
		}
	case backendMemory:
		ts.plans = memplanrepo.NewRepo(clk)
		ts.users = memuserrepo.NewRepo(clk)
		dir := memidentity.NewDirectory()
		directory = dir
		idemStore = memidempotency.NewStore()
		ts.register = func(_ *testing.T, email string, uid domain.UserID) {
			dir.Register(email, uid)
		}
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	api := httpapi.NewServer(
		invites.NewService(ts.plans, ts.users, directory),
		memberids.NewService(ts.plans),
		idemStore,
		clk,
	)

	// Dev auth with an empty default subject: requests without X-Debug-Subject are anonymous.
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:       httpapi.NewDevAuthMiddleware(""),
		MaintenanceEndpoints: true,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts.baseURL = srv.URL
	ts.client = srv.Client()
	return ts
}

// id returns name made unique for this server.
func (s *testServer) id(name string) string {
	return name + "-" + s.suffix
}

func (s *testServer) seedPlan(t *testing.T, id domain.PlanID, owner domain.UserID) {
	t.Helper()
	err := s.plans.Create(context.Background(), planrepoport.Plan{
		ID:        id,
		Members:   map[domain.UserID]domain.Membership{owner: {Role: domain.RoleOwner, JoinedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
		MemberIDs: []domain.UserID{owner},
	})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
}

func (s *testServer) call(t *testing.T, name string, subject string, idempotencyKey string, data any) (int, []byte, http.Header) {
	t.Helper()

	b, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/"+name, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Status    string         `json:"status"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func mustResult[T any](t *testing.T, status int, body []byte) T {
	t.Helper()
	if status != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", status, string(body))
	}
	return mustUnmarshal[struct {
		Result T `json:"result"`
	}](t, body).Result
}

func requireCallableError(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Status != wantCode {
		t.Fatalf("error.status=%q want=%q body=%s", got.Error.Status, wantCode, string(body))
	}
	if got.Error.RequestID == "" {
		t.Fatalf("expected requestId; body=%s", string(body))
	}
}
