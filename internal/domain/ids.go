package domain

// UserID is the identity-provider uid of an authenticated user (Firebase uid or JWT `sub`).
// It is opaque: its format is controlled by the IdP.
type UserID string

// PlanID identifies a plan document.
type PlanID string
