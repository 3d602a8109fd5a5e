package context

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
	resourceKey
)

// Resource names the club record a request is about, such as a payment or a
// ledger entry addressed by id in the route.
type Resource struct {
	Kind string
	ID   string
}

func (r Resource) IsZero() bool {
	return r.Kind == "" || r.ID == ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithActor records the admin (or "system") responsible for the request.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, strings.TrimSpace(actor))
}

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(actorKey).(string)
	return v
}

func WithResource(ctx context.Context, kind, id string) context.Context {
	return context.WithValue(ctx, resourceKey, Resource{
		Kind: strings.TrimSpace(kind),
		ID:   strings.TrimSpace(id),
	})
}

func ResourceFromContext(ctx context.Context) Resource {
	if ctx == nil {
		return Resource{}
	}
	v, _ := ctx.Value(resourceKey).(Resource)
	return v
}
