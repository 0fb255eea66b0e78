package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/pkg/httpmiddleware"
)

var errBadBody = apperr.Validation("Invalid request body")

// statusOf maps a failure kind to its HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unexpected failures are logged with their cause
// and answered with the client-safe message only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorStatus(w, r, err, statusOf(apperr.KindOf(err)))
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	httpmiddleware.WriteError(w, status, apperr.MessageOf(err))
}
