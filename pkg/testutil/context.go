package testutil

import (
	"net/http"

	id "ofertas/pkg/domain"
	"ofertas/pkg/requestcontext"
)

// WithCaller simulates the auth middleware for an authenticated request.
func WithCaller(req *http.Request, userID, displayName string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	if displayName != "" {
		ctx = requestcontext.WithDisplayName(ctx, displayName)
	}
	return req.WithContext(ctx)
}

