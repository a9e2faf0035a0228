package invites

import "github.com/Overland-East-Bay/plan-sharing-api/internal/domain"

type InviteByEmailInput struct {
	PlanID domain.PlanID
	Email  string
}

type InviteByEmailResult struct {
	Success bool
	Message string
	// InvitedUserID is the identity the email resolved to.
	InvitedUserID domain.UserID
}

type InviteTokenResult struct {
	InviteToken string
	// Created is true when this call generated and stored the token.
	Created bool
}

type RedeemResult struct {
	PlanID domain.PlanID
	// AlreadyMember is true when the caller was a member before redeeming; nothing was written.
	AlreadyMember bool
}
