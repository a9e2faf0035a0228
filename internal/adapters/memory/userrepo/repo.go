package userrepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	clockport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	clk clockport.Clock

	mu    sync.RWMutex
	byUID map[domain.UserID]userrepo.User
}

func NewRepo(clk clockport.Clock) *Repo {
	return &Repo{
		clk:   clk,
		byUID: make(map[domain.UserID]userrepo.User),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUID[u.UID] = cloneUser(u)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, uid domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUID[uid]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) SetActivePlan(ctx context.Context, uid domain.UserID, planID domain.PlanID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byUID[uid]
	if !ok {
		u = userrepo.User{UID: uid}
	}
	u.ActivePlanID = &planID
	u.UpdatedAt = r.clk.Now()
	r.byUID[uid] = u
	return nil
}

func cloneUser(u userrepo.User) userrepo.User {
	cp := u
	if u.ActivePlanID != nil {
		v := *u.ActivePlanID
		cp.ActivePlanID = &v
	}
	return cp
}
