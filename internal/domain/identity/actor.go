package identity

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated user a request acts as
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Can reports whether the actor's role holds the permission
func (a Actor) Can(resource, action string) bool {
	return a.Role.Can(resource, action)
}

type actorKey struct{}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}
