package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"casefile/internal/record/models"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/httputil"
)

// SubmitRequest is the HTTP request body for POST /records/{id}/submissions.
type SubmitRequest struct {
	Sections []string `json:"sections"`

	// Parsed values (populated by Validate)
	parsedKeys []models.SectionKey
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Sections) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "sections array must not be empty")
	}

	r.parsedKeys = make([]models.SectionKey, 0, len(r.Sections))
	for _, raw := range r.Sections {
		key := strings.TrimSpace(raw)
		if key == "" {
			return dErrors.New(dErrors.CodeBadRequest, "section keys must not be empty")
		}
		r.parsedKeys = append(r.parsedKeys, models.SectionKey(key))
	}
	return nil
}

// ParsedKeys returns the validated section keys. Whether each key names a real
// section is decided by the schema registry, not here.
func (r *SubmitRequest) ParsedKeys() []models.SectionKey {
	return r.parsedKeys
}

// decodePayload reads the free-form section payload. Shape validation is the
// schema registry's job; the transport only requires a JSON object.
func decodePayload(w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (models.SectionPayload, bool) {
	var payload models.SectionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "failed to decode section payload",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if payload == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "payload must be a JSON object"))
		return nil, false
	}
	return payload, true
}
