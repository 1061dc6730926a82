package middleware

import (
	"net/http"

	"github.com/openartmap/openartmap-backend/api/responses"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
)

// RequireModerator gates review routes on the moderator capability claim.
func RequireModerator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ModeratorFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "moderator capability required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
