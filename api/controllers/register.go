package controllers

import (
	"net/http"

	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/api/validators"
	"github.com/brandinbox/brandinbox-backend/internal/auth"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

// AuthRegister handles onboarding new seller accounts.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := reg.Register(r.Context(), body)
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "register failed", err)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-BNB-Token", result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
