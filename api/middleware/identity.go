package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Identities arrive from the edge proxy as headers set after authentication
// upstream; the values are trusted verbatim.
const (
	customerIDHeader = "X-Customer-Id"
	staffIDHeader    = "X-Staff-Id"
)

type contextKey string

const (
	ctxCustomerID contextKey = "customer_id"
	ctxStaffID    contextKey = "staff_id"
)

// Identity copies the caller identity headers into the request context.
// Malformed values are dropped rather than rejected; handlers decide whether
// an identity is required.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id, err := uuid.Parse(r.Header.Get(customerIDHeader)); err == nil {
				ctx = context.WithValue(ctx, ctxCustomerID, id)
			}
			if id, err := uuid.Parse(r.Header.Get(staffIDHeader)); err == nil {
				ctx = context.WithValue(ctx, ctxStaffID, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if id, ok := ctx.Value(ctxCustomerID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func StaffIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if id, ok := ctx.Value(ctxStaffID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
