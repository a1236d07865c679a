package controllers

import (
	"net/http"

	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/api/validators"
	"github.com/brandinbox/brandinbox-backend/internal/auth"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-BNB-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
