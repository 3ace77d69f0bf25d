package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/mdobrescu/courierhub-backend/api/responses"
	"github.com/mdobrescu/courierhub-backend/internal/ingest"
	pkgerrors "github.com/mdobrescu/courierhub-backend/pkg/errors"
	"github.com/mdobrescu/courierhub-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

// OrderWebhook accepts a raw order payload from any connected source. The
// source can be forced with the ?source= query parameter or the X-Source
// header; otherwise it is detected from headers and payload shape. Replays of an already-ingested
// order return the stored record with a 200 instead of a 201.
func OrderWebhook(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to read request body"))
			return
		}
		if len(payload) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body is empty"))
			return
		}

		sourceTag := strings.TrimSpace(r.URL.Query().Get("source"))
		if sourceTag == "" {
			sourceTag = strings.TrimSpace(r.Header.Get("X-Source"))
		}

		order, created, err := svc.IngestOrder(r.Context(), sourceTag, r.Header, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, order)
	}
}
