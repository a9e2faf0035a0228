package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// callerFromContext returns the authenticated uid, or "" for an anonymous request.
func callerFromContext(ctx context.Context) domain.UserID {
	sub, _ := SubjectFromContext(ctx)
	return domain.UserID(sub)
}
