package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
)

// Directory resolves emails against the users mirror table. It serves deployments
// that authenticate with plain JWTs and have no identity-provider admin API.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) LookupByEmail(ctx context.Context, email string) (domain.UserID, error) {
	if d.pool == nil {
		return "", postgres.ErrNilPool
	}
	var uid string
	err := d.pool.QueryRow(ctx, `
		SELECT uid FROM users WHERE lower(email) = lower(btrim($1)) AND email <> '' LIMIT 1
	`, email).Scan(&uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", identity.ErrNotFound
		}
		return "", err
	}
	return domain.UserID(uid), nil
}
