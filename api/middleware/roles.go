package middleware

import (
	"net/http"

	"github.com/iamteki/kl-mobile-backend/api/responses"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, apperrors.New(apperrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
