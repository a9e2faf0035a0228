package planrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	clockport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

// Repo is an in-memory implementation of planrepo.Repository.
// It is safe for concurrent use. "Server time" comes from the injected clock.
type Repo struct {
	clk clockport.Clock

	mu   sync.RWMutex
	byID map[domain.PlanID]planrepo.Plan
}

func NewRepo(clk clockport.Clock) *Repo {
	return &Repo{
		clk:  clk,
		byID: make(map[domain.PlanID]planrepo.Plan),
	}
}

func (r *Repo) Create(ctx context.Context, p planrepo.Plan) error {
	_ = ctx
	if p.ID == "" {
		return planrepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return planrepo.ErrAlreadyExists
	}
	r.byID[p.ID] = clonePlan(p)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	return clonePlan(p), nil
}

func (r *Repo) FindByInviteToken(ctx context.Context, token string) (planrepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Scan in ID order so "first match" is deterministic.
	for _, id := range r.sortedIDsLocked() {
		p := r.byID[id]
		if p.InviteToken != nil && *p.InviteToken == token {
			return clonePlan(p), nil
		}
	}
	return planrepo.Plan{}, planrepo.ErrNotFound
}

func (r *Repo) List(ctx context.Context) ([]planrepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]planrepo.Plan, 0, len(r.byID))
	for _, id := range r.sortedIDsLocked() {
		out = append(out, clonePlan(r.byID[id]))
	}
	return out, nil
}

func (r *Repo) AddMember(ctx context.Context, id domain.PlanID, uid domain.UserID, role domain.Role, memberIDs []domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return planrepo.ErrNotFound
	}
	now := r.clk.Now()
	if p.Members == nil {
		p.Members = make(map[domain.UserID]domain.Membership)
	}
	p.Members[uid] = domain.Membership{Role: role, JoinedAt: now}
	p.MemberIDs = append([]domain.UserID(nil), memberIDs...)
	p.UpdatedAt = now
	r.byID[id] = p
	return nil
}

func (r *Repo) SetInviteToken(ctx context.Context, id domain.PlanID, token string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return planrepo.ErrNotFound
	}
	p.InviteToken = &token
	p.UpdatedAt = r.clk.Now()
	r.byID[id] = p
	return nil
}

func (r *Repo) ReplaceMemberIDs(ctx context.Context, id domain.PlanID, memberIDs []domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceMemberIDsLocked(id, memberIDs)
}

func (r *Repo) ReplaceMemberIDsBatch(ctx context.Context, fixes []planrepo.MemberIDsFix) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	// Validate first so a missing plan leaves every plan untouched.
	for _, f := range fixes {
		if _, ok := r.byID[f.PlanID]; !ok {
			return planrepo.ErrNotFound
		}
	}
	for _, f := range fixes {
		if err := r.replaceMemberIDsLocked(f.PlanID, f.MemberIDs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) replaceMemberIDsLocked(id domain.PlanID, memberIDs []domain.UserID) error {
	p, ok := r.byID[id]
	if !ok {
		return planrepo.ErrNotFound
	}
	p.MemberIDs = append([]domain.UserID(nil), memberIDs...)
	p.UpdatedAt = r.clk.Now()
	r.byID[id] = p
	return nil
}

func (r *Repo) sortedIDsLocked() []domain.PlanID {
	ids := make([]domain.PlanID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clonePlan(p planrepo.Plan) planrepo.Plan {
	cp := p
	if p.Members != nil {
		cp.Members = make(map[domain.UserID]domain.Membership, len(p.Members))
		for k, v := range p.Members {
			cp.Members[k] = v
		}
	}
	if p.MemberIDs != nil {
		cp.MemberIDs = append([]domain.UserID(nil), p.MemberIDs...)
	}
	if p.InviteToken != nil {
		v := *p.InviteToken
		cp.InviteToken = &v
	}
	return cp
}
