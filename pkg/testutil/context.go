package testutil

import (
	"net/http"

	id "securitypassport/pkg/domain"
	"securitypassport/pkg/requestcontext"
)

// WithTenant adds tenant and user ids to the request context, as the auth
// middleware does for a verified bearer token.
func WithTenant(req *http.Request, tenantID id.TenantID, userID id.UserID) *http.Request {
	ctx := requestcontext.WithTenantID(req.Context(), tenantID)
	ctx = requestcontext.WithUserID(ctx, userID)
	return req.WithContext(ctx)
}

// WithRequestID sets the correlation id normally assigned by middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
