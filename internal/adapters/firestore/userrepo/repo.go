package userrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

// Repo is a Firestore implementation of userrepo.Repository over the users collection.
type Repo struct {
	client     *firestore.Client
	collection string
}

func NewRepo(client *firestore.Client, collection string) *Repo {
	return &Repo{client: client, collection: collection}
}

type userDoc struct {
	Email        string    `firestore:"email"`
	ActivePlanID *string   `firestore:"activePlanId"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.client == nil {
		return errors.New("firestore client is nil")
	}
	data := map[string]any{
		"email":     u.Email,
		"updatedAt": firestore.ServerTimestamp,
	}
	if u.ActivePlanID != nil {
		data["activePlanId"] = string(*u.ActivePlanID)
	}
	_, err := r.client.Collection(r.collection).Doc(string(u.UID)).Set(ctx, data)
	return err
}

func (r *Repo) GetByID(ctx context.Context, uid domain.UserID) (userrepo.User, error) {
	if r.client == nil {
		return userrepo.User{}, errors.New("firestore client is nil")
	}
	snap, err := r.client.Collection(r.collection).Doc(string(uid)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	if err != nil {
		return userrepo.User{}, err
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return userrepo.User{}, fmt.Errorf("decode user %s: %w", uid, err)
	}
	u := userrepo.User{UID: uid, Email: d.Email, UpdatedAt: d.UpdatedAt.UTC()}
	if d.ActivePlanID != nil {
		pid := domain.PlanID(*d.ActivePlanID)
		u.ActivePlanID = &pid
	}
	return u, nil
}

func (r *Repo) SetActivePlan(ctx context.Context, uid domain.UserID, planID domain.PlanID) error {
	if r.client == nil {
		return errors.New("firestore client is nil")
	}
	_, err := r.client.Collection(r.collection).Doc(string(uid)).Set(ctx, map[string]any{
		"activePlanId": string(planID),
		"updatedAt":    firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}
