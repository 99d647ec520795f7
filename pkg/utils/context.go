package utils

import (
	"context"
)

type contextKey string

const ActorKey contextKey = "actor"

// GetActorFromContext returns the operator identity attached by the actor middleware.
func GetActorFromContext(ctx context.Context) (string, bool) {
	actorVal := ctx.Value(ActorKey)
	if actorVal == nil {
		return "", false
	}

	actor, ok := actorVal.(string)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}

func SetActorContext(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
