package firebase

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
)

// UserLookup is the subset of *auth.Client the directory needs.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
}

// Directory implements identity.Directory with Firebase Auth's admin user lookup.
type Directory struct {
	users UserLookup
}

func NewDirectory(users UserLookup) *Directory {
	return &Directory{users: users}
}

func (d *Directory) LookupByEmail(ctx context.Context, email string) (domain.UserID, error) {
	if d.users == nil {
		return "", errors.New("firebase auth client is nil")
	}
	u, err := d.users.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", identity.ErrNotFound
		}
		return "", err
	}
	if u == nil || u.UserInfo == nil || u.UID == "" {
		return "", identity.ErrNotFound
	}
	return domain.UserID(u.UID), nil
}
