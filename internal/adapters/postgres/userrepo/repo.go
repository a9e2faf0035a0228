package userrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	var active *string
	if u.ActivePlanID != nil {
		v := string(*u.ActivePlanID)
		active = &v
	}
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (uid, email, active_plan_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			active_plan_id = EXCLUDED.active_plan_id,
			updated_at = EXCLUDED.updated_at
	`,
		string(u.UID),
		u.Email,
		active,
		updatedAt.UTC(),
	)
	return err
}

func (r *Repo) GetByID(ctx context.Context, uid domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, postgres.ErrNilPool
	}
	var (
		u      userrepo.User
		id     string
		active *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT uid, email, active_plan_id, updated_at FROM users WHERE uid = $1
	`, string(uid)).Scan(&id, &u.Email, &active, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	u.UID = domain.UserID(id)
	if active != nil {
		pid := domain.PlanID(*active)
		u.ActivePlanID = &pid
	}
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// SetActivePlan upserts so a user without a mirror record still gets one.
func (r *Repo) SetActivePlan(ctx context.Context, uid domain.UserID, planID domain.PlanID) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (uid, active_plan_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (uid) DO UPDATE SET
			active_plan_id = EXCLUDED.active_plan_id,
			updated_at = now()
	`, string(uid), string(planID))
	return err
}
