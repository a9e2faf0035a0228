// Package storage opens the plan, user and idempotency stores for the configured backend.
package storage

import (
	"context"
	"fmt"

	fsadapter "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/firestore"
	fsplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/firestore/planrepo"
	fsuserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/firestore/userrepo"
	memidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/idempotency"
	memplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/planrepo"
	memuserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/userrepo"
	postgres "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/idempotency"
	pgidentity "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/identity"
	pgplanrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/planrepo"
	pguserrepo "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/config"
	clockport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

type Stores struct {
	Plans planrepo.Repository
	Users userrepo.Repository
	Idem  idempotency.Store
	// Directory is set only by backends that can resolve emails from their own user table.
	Directory identity.Directory

	// Close releases backend connections. Never nil.
	Close func()
}

// Open connects to backend. Postgres migrations are applied before returning.
func Open(ctx context.Context, cfg config.Config, backend string, clk clockport.Clock) (Stores, error) {
	switch backend {
	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Stores{}, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return Stores{}, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("migrate: %w", err)
		}
		return Stores{
			Plans:     pgplanrepo.NewRepo(pool),
			Users:     pguserrepo.NewRepo(pool),
			Idem:      pgidempotency.NewStore(pool),
			Directory: pgidentity.NewDirectory(pool),
			Close:     pool.Close,
		}, nil

	case config.StorageFirestore:
		client, err := fsadapter.NewClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Plans: fsplanrepo.NewRepo(client, cfg.Firebase.PlansCollection),
			Users: fsuserrepo.NewRepo(client, cfg.Firebase.UsersCollection),
			// Replay records are per process; Firestore holds no idempotency collection.
			Idem:  memidempotency.NewStore(),
			Close: func() { _ = client.Close() },
		}, nil

	case config.StorageMemory:
		return Stores{
			Plans: memplanrepo.NewRepo(clk),
			Users: memuserrepo.NewRepo(clk),
			Idem:  memidempotency.NewStore(),
			Close: func() {},
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown storage backend %q", backend)
	}
}
