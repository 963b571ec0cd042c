// Package handler exposes the section engine over HTTP. Routes are mounted
// behind the authentication middleware; the acting user always comes from the
// request context, never from the payload.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/httputil"
	"casefile/pkg/requestcontext"
)

// Service defines the section engine operations the transport needs.
type Service interface {
	Project(ctx context.Context, recordID id.RecordID, key models.SectionKey) (*models.SectionView, error)
	Save(ctx context.Context, recordID id.RecordID, key models.SectionKey, payload models.SectionPayload) (*models.Record, error)
	Submit(ctx context.Context, recordID id.RecordID, keys []models.SectionKey) (*models.Record, error)
}

// Handler wires section endpoints to the section service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a section handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the section endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/records/{recordID}/sections/{key}", h.HandleGetSection)
	r.Put("/records/{recordID}/sections/{key}", h.HandleSaveSection)
	r.Post("/records/{recordID}/submissions", h.HandleSubmitSections)
}

// HandleGetSection handles GET /records/{recordID}/sections/{key}.
func (h *Handler) HandleGetSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, key, ok := h.sectionParams(w, r)
	if !ok {
		return
	}

	view, err := h.service.Project(ctx, recordID, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "section projection failed",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", recordID,
			"section", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleSaveSection handles PUT /records/{recordID}/sections/{key}. The
// response is the freshly projected view, so clients read back exactly what
// the merge persisted.
func (h *Handler) HandleSaveSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	recordID, key, ok := h.sectionParams(w, r)
	if !ok {
		return
	}

	payload, ok := decodePayload(w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.service.Save(ctx, recordID, key, payload); err != nil {
		h.logger.ErrorContext(ctx, "section save failed",
			"request_id", requestID,
			"record_id", recordID,
			"section", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.Project(ctx, recordID, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "section saved",
		"request_id", requestID,
		"record_id", recordID,
		"section", key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleSubmitSections handles POST /records/{recordID}/submissions.
func (h *Handler) HandleSubmitSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	recordID, ok := h.recordParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, recordID, req.ParsedKeys())
	if err != nil {
		h.logger.ErrorContext(ctx, "section submission failed",
			"request_id", requestID,
			"record_id", recordID,
			"sections", req.Sections,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sections submitted",
		"request_id", requestID,
		"record_id", recordID,
		"sections", req.Sections,
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubmission(record, req.ParsedKeys()))
}

// sectionParams authenticates the caller and parses the record id and section
// key path parameters.
func (h *Handler) sectionParams(w http.ResponseWriter, r *http.Request) (id.RecordID, models.SectionKey, bool) {
	recordID, ok := h.recordParam(w, r)
	if !ok {
		return id.RecordID{}, "", false
	}
	key := models.SectionKey(chi.URLParam(r, "key"))
	if key == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "section key is required"))
		return id.RecordID{}, "", false
	}
	return recordID, key, true
}

func (h *Handler) recordParam(w http.ResponseWriter, r *http.Request) (id.RecordID, bool) {
	if requestcontext.UserID(r.Context()) == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.RecordID{}, false
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RecordID{}, false
	}
	return recordID, true
}
