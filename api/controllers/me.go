package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brandinbox/brandinbox-backend/api/middleware"
	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/internal/auth"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

// Me returns the profile of the authenticated user.
func Me(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session"))
			return
		}

		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
