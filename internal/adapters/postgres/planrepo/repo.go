package planrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

// Repo is a Postgres implementation of planrepo.Repository.
//
// The membership map lives in a JSONB column keyed by user id, mirroring the document
// shape of the other backends. Store time comes from now().
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

type membershipJSON struct {
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

const selectPlan = `SELECT id, members, member_ids, invite_token, updated_at FROM plans`

func (r *Repo) Create(ctx context.Context, p planrepo.Plan) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	members, err := encodeMembers(p.Members)
	if err != nil {
		return err
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO plans (id, members, member_ids, invite_token, updated_at)
		VALUES ($1, $2::jsonb, $3, $4, $5)
	`,
		string(p.ID),
		members,
		encodeIDs(p.MemberIDs),
		p.InviteToken,
		updatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return planrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	if r.pool == nil {
		return planrepo.Plan{}, postgres.ErrNilPool
	}
	return scanPlan(r.pool.QueryRow(ctx, selectPlan+` WHERE id = $1`, string(id)))
}

func (r *Repo) FindByInviteToken(ctx context.Context, token string) (planrepo.Plan, error) {
	if r.pool == nil {
		return planrepo.Plan{}, postgres.ErrNilPool
	}
	return scanPlan(r.pool.QueryRow(ctx, selectPlan+` WHERE invite_token = $1 ORDER BY id LIMIT 1`, token))
}

func (r *Repo) List(ctx context.Context) ([]planrepo.Plan, error) {
	if r.pool == nil {
		return nil, postgres.ErrNilPool
	}
	rows, err := r.pool.Query(ctx, selectPlan+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planrepo.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) AddMember(ctx context.Context, id domain.PlanID, uid domain.UserID, role domain.Role, memberIDs []domain.UserID) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE plans
		SET members = members || jsonb_build_object(
		        $2::text,
		        jsonb_build_object('role', $3::text, 'joinedAt', to_jsonb(now()))
		    ),
		    member_ids = $4,
		    updated_at = now()
		WHERE id = $1
	`,
		string(id),
		string(uid),
		string(role),
		encodeIDs(memberIDs),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return planrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) SetInviteToken(ctx context.Context, id domain.PlanID, token string) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	ct, err := r.pool.Exec(ctx, `UPDATE plans SET invite_token = $2, updated_at = now() WHERE id = $1`, string(id), token)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return planrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ReplaceMemberIDs(ctx context.Context, id domain.PlanID, memberIDs []domain.UserID) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	return replaceMemberIDs(ctx, r.pool, id, memberIDs)
}

func (r *Repo) ReplaceMemberIDsBatch(ctx context.Context, fixes []planrepo.MemberIDsFix) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	if len(fixes) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, f := range fixes {
			if err := replaceMemberIDs(ctx, tx, f.PlanID, f.MemberIDs); err != nil {
				return fmt.Errorf("plan %s: %w", f.PlanID, err)
			}
		}
		return nil
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func replaceMemberIDs(ctx context.Context, db execer, id domain.PlanID, memberIDs []domain.UserID) error {
	ct, err := db.Exec(ctx, `UPDATE plans SET member_ids = $2, updated_at = now() WHERE id = $1`, string(id), encodeIDs(memberIDs))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return planrepo.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (planrepo.Plan, error) {
	var (
		id        string
		members   []byte
		memberIDs []string
		token     *string
		updatedAt time.Time
	)
	if err := row.Scan(&id, &members, &memberIDs, &token, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return planrepo.Plan{}, planrepo.ErrNotFound
		}
		return planrepo.Plan{}, err
	}

	raw := map[string]membershipJSON{}
	if err := json.Unmarshal(members, &raw); err != nil {
		return planrepo.Plan{}, fmt.Errorf("%w: plan %s members: %v", planrepo.ErrMalformed, id, err)
	}
	p := planrepo.Plan{
		ID:          domain.PlanID(id),
		Members:     make(map[domain.UserID]domain.Membership, len(raw)),
		InviteToken: token,
		UpdatedAt:   updatedAt.UTC(),
	}
	for uid, m := range raw {
		p.Members[domain.UserID(uid)] = domain.Membership{Role: domain.Role(m.Role), JoinedAt: m.JoinedAt.UTC()}
	}
	for _, uid := range memberIDs {
		p.MemberIDs = append(p.MemberIDs, domain.UserID(uid))
	}
	return p, nil
}

func encodeMembers(members map[domain.UserID]domain.Membership) (string, error) {
	raw := make(map[string]membershipJSON, len(members))
	for uid, m := range members {
		raw[string(uid)] = membershipJSON{Role: string(m.Role), JoinedAt: m.JoinedAt.UTC()}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeIDs(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
