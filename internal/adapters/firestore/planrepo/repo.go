package planrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/planrepo"
)

// Repo is a Firestore implementation of planrepo.Repository.
//
// Document shape: members{uid:{role, joinedAt}}, memberIds[], inviteToken, updatedAt.
// Timestamps written by mutations are server timestamps.
type Repo struct {
	client     *firestore.Client
	collection string
}

func NewRepo(client *firestore.Client, collection string) *Repo {
	return &Repo{client: client, collection: collection}
}

type memberDoc struct {
	Role     string    `firestore:"role"`
	JoinedAt time.Time `firestore:"joinedAt"`
}

type planDoc struct {
	Members     map[string]memberDoc `firestore:"members"`
	MemberIDs   []string             `firestore:"memberIds"`
	InviteToken *string              `firestore:"inviteToken"`
	UpdatedAt   time.Time            `firestore:"updatedAt"`
}

func (r *Repo) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *Repo) Create(ctx context.Context, p planrepo.Plan) error {
	if r.client == nil {
		return errors.New("firestore client is nil")
	}
	members := make(map[string]any, len(p.Members))
	for uid, m := range p.Members {
		members[string(uid)] = map[string]any{"role": string(m.Role), "joinedAt": m.JoinedAt.UTC()}
	}
	data := map[string]any{
		"members":   members,
		"memberIds": toStrings(p.MemberIDs),
		"updatedAt": firestore.ServerTimestamp,
	}
	if p.InviteToken != nil {
		data["inviteToken"] = *p.InviteToken
	}
	if _, err := r.col().Doc(string(p.ID)).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return planrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	if r.client == nil {
		return planrepo.Plan{}, errors.New("firestore client is nil")
	}
	snap, err := r.col().Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	if err != nil {
		return planrepo.Plan{}, err
	}
	return docToPlan(snap)
}

func (r *Repo) FindByInviteToken(ctx context.Context, token string) (planrepo.Plan, error) {
	if r.client == nil {
		return planrepo.Plan{}, errors.New("firestore client is nil")
	}
	it := r.col().Where("inviteToken", "==", token).Limit(1).Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	if err != nil {
		return planrepo.Plan{}, err
	}
	return docToPlan(snap)
}

func (r *Repo) List(ctx context.Context) ([]planrepo.Plan, error) {
	if r.client == nil {
		return nil, errors.New("firestore client is nil")
	}
	it := r.col().Documents(ctx)
	defer it.Stop()

	var out []planrepo.Plan
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := docToPlan(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repo) AddMember(ctx context.Context, id domain.PlanID, uid domain.UserID, role domain.Role, memberIDs []domain.UserID) error {
	return r.update(ctx, id, []firestore.Update{
		{
			FieldPath: firestore.FieldPath{"members", string(uid)},
			Value:     map[string]any{"role": string(role), "joinedAt": firestore.ServerTimestamp},
		},
		{Path: "memberIds", Value: toStrings(memberIDs)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (r *Repo) SetInviteToken(ctx context.Context, id domain.PlanID, token string) error {
	return r.update(ctx, id, []firestore.Update{
		{Path: "inviteToken", Value: token},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (r *Repo) ReplaceMemberIDs(ctx context.Context, id domain.PlanID, memberIDs []domain.UserID) error {
	return r.update(ctx, id, memberIDsUpdate(memberIDs))
}

// ReplaceMemberIDsBatch writes every fix in one transaction. An update against a
// missing document aborts the whole commit.
func (r *Repo) ReplaceMemberIDsBatch(ctx context.Context, fixes []planrepo.MemberIDsFix) error {
	if r.client == nil {
		return errors.New("firestore client is nil")
	}
	if len(fixes) == 0 {
		return nil
	}
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, f := range fixes {
			if err := tx.Update(r.col().Doc(string(f.PlanID)), memberIDsUpdate(f.MemberIDs)); err != nil {
				return err
			}
		}
		return nil
	})
	if status.Code(err) == codes.NotFound {
		return planrepo.ErrNotFound
	}
	return err
}

func (r *Repo) update(ctx context.Context, id domain.PlanID, updates []firestore.Update) error {
	if r.client == nil {
		return errors.New("firestore client is nil")
	}
	_, err := r.col().Doc(string(id)).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return planrepo.ErrNotFound
	}
	return err
}

func memberIDsUpdate(ids []domain.UserID) []firestore.Update {
	return []firestore.Update{
		{Path: "memberIds", Value: toStrings(ids)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
}

func docToPlan(snap *firestore.DocumentSnapshot) (planrepo.Plan, error) {
	var d planDoc
	if err := snap.DataTo(&d); err != nil {
		return planrepo.Plan{}, fmt.Errorf("%w: plan %s: %v", planrepo.ErrMalformed, snap.Ref.ID, err)
	}
	p := planrepo.Plan{
		ID:          domain.PlanID(snap.Ref.ID),
		Members:     make(map[domain.UserID]domain.Membership, len(d.Members)),
		InviteToken: d.InviteToken,
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	for uid, m := range d.Members {
		p.Members[domain.UserID(uid)] = domain.Membership{Role: domain.Role(m.Role), JoinedAt: m.JoinedAt.UTC()}
	}
	for _, uid := range d.MemberIDs {
		p.MemberIDs = append(p.MemberIDs, domain.UserID(uid))
	}
	return p, nil
}

func toStrings(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
