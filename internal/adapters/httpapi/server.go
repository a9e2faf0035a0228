package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/invites"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
)

// Server adapts the application services to the callable wire protocol.
type Server struct {
	Invites   *invites.Service
	MemberIDs *memberids.Service
	Idem      idempotency.Store
	Clock     clock.Clock

	// ReplayWindow bounds how old a stored response may be and still be replayed.
	// Zero replays records of any age.
	ReplayWindow time.Duration
}

func NewServer(invitesSvc *invites.Service, memberIDsSvc *memberids.Service, idem idempotency.Store, clk clock.Clock) *Server {
	return &Server{
		Invites:   invitesSvc,
		MemberIDs: memberIDsSvc,
		Idem:      idem,
		Clock:     clk,
	}
}

type inviteByEmailData struct {
	PlanID string `json:"planId"`
	Email  string `json:"email"`
}

type inviteByEmailResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type planIDData struct {
	PlanID string `json:"planId"`
}

type inviteTokenResult struct {
	InviteToken string `json:"inviteToken"`
}

type redeemInviteTokenData struct {
	Token string `json:"token"`
}

type redeemInviteTokenResult struct {
	Success       bool   `json:"success,omitempty"`
	AlreadyMember bool   `json:"alreadyMember,omitempty"`
	PlanID        string `json:"planId"`
}

type repairMemberIDsResult struct {
	Success         bool     `json:"success"`
	Repaired        int      `json:"repaired"`
	RepairedPlanIDs []string `json:"repairedPlanIds"`
	Message         string   `json:"message"`
}

// repairPlanMemberIDsResult carries oldMemberIds/newMemberIds after a repair, or
// memberIds when nothing needed repairing.
type repairPlanMemberIDsResult struct {
	Success      bool                        `json:"success"`
	PlanID       string                      `json:"planId"`
	OldMemberIDs nullable.Nullable[[]string] `json:"oldMemberIds,omitempty"`
	NewMemberIDs nullable.Nullable[[]string] `json:"newMemberIds,omitempty"`
	MemberIDs    nullable.Nullable[[]string] `json:"memberIds,omitempty"`
	Message      string                      `json:"message"`
}

func (s *Server) inviteByEmail() callable[inviteByEmailData, inviteByEmailResult] {
	return callable[inviteByEmailData, inviteByEmailResult]{
		name: "inviteByEmail",
		canonical: func(d inviteByEmailData) inviteByEmailData {
			return inviteByEmailData{PlanID: strings.TrimSpace(d.PlanID), Email: domain.NormalizeEmail(d.Email)}
		},
		invoke: func(ctx context.Context, caller domain.UserID, d inviteByEmailData) (inviteByEmailResult, error) {
			res, err := s.Invites.InviteByEmail(ctx, caller, invites.InviteByEmailInput{
				PlanID: domain.PlanID(d.PlanID),
				Email:  d.Email,
			})
			if err != nil {
				return inviteByEmailResult{}, err
			}
			return inviteByEmailResult{Success: res.Success, Message: res.Message}, nil
		},
	}
}

func (s *Server) getOrCreateInviteToken() callable[planIDData, inviteTokenResult] {
	return callable[planIDData, inviteTokenResult]{
		name: "getOrCreateInviteToken",
		invoke: func(ctx context.Context, caller domain.UserID, d planIDData) (inviteTokenResult, error) {
			res, err := s.Invites.GetOrCreateInviteToken(ctx, caller, domain.PlanID(d.PlanID))
			if err != nil {
				return inviteTokenResult{}, err
			}
			return inviteTokenResult{InviteToken: res.InviteToken}, nil
		},
	}
}

func (s *Server) redeemInviteToken() callable[redeemInviteTokenData, redeemInviteTokenResult] {
	return callable[redeemInviteTokenData, redeemInviteTokenResult]{
		name: "redeemInviteToken",
		canonical: func(d redeemInviteTokenData) redeemInviteTokenData {
			return redeemInviteTokenData{Token: strings.TrimSpace(d.Token)}
		},
		invoke: func(ctx context.Context, caller domain.UserID, d redeemInviteTokenData) (redeemInviteTokenResult, error) {
			res, err := s.Invites.RedeemInviteToken(ctx, caller, d.Token)
			if err != nil {
				return redeemInviteTokenResult{}, err
			}
			if res.AlreadyMember {
				return redeemInviteTokenResult{AlreadyMember: true, PlanID: string(res.PlanID)}, nil
			}
			return redeemInviteTokenResult{Success: true, PlanID: string(res.PlanID)}, nil
		},
	}
}

func (s *Server) repairMemberIDs() callable[struct{}, repairMemberIDsResult] {
	return callable[struct{}, repairMemberIDsResult]{
		name: "repairMemberIds",
		invoke: func(ctx context.Context, caller domain.UserID, _ struct{}) (repairMemberIDsResult, error) {
			if caller == "" {
				return repairMemberIDsResult{}, apperr.Unauthenticated()
			}
			res, err := s.MemberIDs.RepairAll(ctx)
			if err != nil {
				return repairMemberIDsResult{}, err
			}
			ids := make([]string, 0, len(res.RepairedPlanIDs))
			for _, id := range res.RepairedPlanIDs {
				ids = append(ids, string(id))
			}
			return repairMemberIDsResult{
				Success:         true,
				Repaired:        res.Repaired,
				RepairedPlanIDs: ids,
				Message:         res.Message,
			}, nil
		},
	}
}

func (s *Server) repairPlanMemberIDs() callable[planIDData, repairPlanMemberIDsResult] {
	return callable[planIDData, repairPlanMemberIDsResult]{
		name: "repairPlanMemberIds",
		invoke: func(ctx context.Context, caller domain.UserID, d planIDData) (repairPlanMemberIDsResult, error) {
			if caller == "" {
				return repairPlanMemberIDsResult{}, apperr.Unauthenticated()
			}
			res, err := s.MemberIDs.RepairPlan(ctx, domain.PlanID(d.PlanID))
			if err != nil {
				return repairPlanMemberIDsResult{}, err
			}
			out := repairPlanMemberIDsResult{
				Success: true,
				PlanID:  string(res.PlanID),
				Message: res.Message,
			}
			if res.Repaired {
				out.OldMemberIDs = nullable.NewNullableWithValue(userIDStrings(res.OldMemberIDs))
				out.NewMemberIDs = nullable.NewNullableWithValue(userIDStrings(res.NewMemberIDs))
			} else {
				out.MemberIDs = nullable.NewNullableWithValue(userIDStrings(res.NewMemberIDs))
			}
			return out, nil
		},
	}
}

func userIDStrings(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
