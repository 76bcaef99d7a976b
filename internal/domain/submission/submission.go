// Package submission carries per-submission identity through a context.
package submission

import (
	"context"

	"github.com/google/uuid"
)

// HeaderRequestID is the header used to forward the submission id upstream.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// NewID returns a fresh submission id.
func NewID() string {
	return uuid.NewString()
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFrom returns the submission id stored in ctx, if any.
func IDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
