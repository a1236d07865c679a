package controllers

import (
	"net/http"
	"strings"

	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/internal/uploads"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

// UploadImage accepts a multipart image and stores it for the seller. The
// returned URL is what the listing endpoints expect in product_photo_url.
func UploadImage(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := uploads.ParseKind(r.FormValue("kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload kind"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file"))
			return
		}
		defer file.Close()

		out, err := svc.Store(r.Context(), uid, uploads.StoreInput{
			Kind:        kind,
			FileName:    header.Filename,
			ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
			SizeBytes:   header.Size,
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
