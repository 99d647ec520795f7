package middleware

import (
	"net/http"

	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// Recover answers 500 when a handler panics. http.ErrAbortHandler is passed on
// to net/http untouched.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.With(zap.String("middleware", "recover"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}

				log.Error("Handler panicked",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("actor", r.Header.Get(ActorHeader)),
					zap.Stack("stack"),
				)
				utils.ResponseInternalError(w, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
