package middleware

import (
	"net/http"
	"strings"

	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// ActorHeader carries the identity of the operator performing an admin action.
// Authentication happens upstream; this service only records who acted.
const ActorHeader = "X-Actor"

// RequireActor rejects admin requests that do not name an actor and stores the
// actor in the request context for the audit log.
func RequireActor(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				logger.Warn("Admin request without actor",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				utils.ResponseUnauthorized(w, "Missing "+ActorHeader+" header")
				return
			}

			ctx := utils.SetActorContext(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
