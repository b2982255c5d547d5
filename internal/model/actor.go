package model

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID     primitive.ObjectID
	ExternalID string
	Email      string
	Name       string
	Role       Role
	IPAddress  string
	UserAgent  string
	RequestID  string
}

type actorKey struct{}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(*Actor)
	return a, ok && a != nil
}
