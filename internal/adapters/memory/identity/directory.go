package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
)

// Directory is an in-memory identity.Directory keyed by case-folded email.
// It is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]domain.UserID
}

func NewDirectory() *Directory {
	return &Directory{byEmail: make(map[string]domain.UserID)}
}

// Register binds email to uid, replacing any previous binding.
func (d *Directory) Register(email string, uid domain.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[strings.ToLower(strings.TrimSpace(email))] = uid
}

func (d *Directory) LookupByEmail(ctx context.Context, email string) (domain.UserID, error) {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()
	uid, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", identity.ErrNotFound
	}
	return uid, nil
}
