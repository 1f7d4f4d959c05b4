package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memberdesk/internal/domain"
	"memberdesk/internal/store"
	dErrors "memberdesk/pkg/domain-errors"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "store unreachable", "error", err.Error())
		dbStatus = "unreachable"
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{
		"status":    "ok",
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.Bootstrap(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "bootstrap failed", "error", err.Error())
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "bootstrap failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": collections})
}

func (h *Handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	name := domain.CollectionName(chi.URLParam(r, "name"))
	records, err := h.store.Get(r.Context(), name)
	if err != nil {
		h.writeStoreError(w, r, "get collection failed", name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

// putRequest is the body of PUT /collections/{name}. The data sequence
// fully replaces the stored one.
type putRequest struct {
	Data []json.RawMessage `json:"data"`
}

func (h *Handler) handlePutCollection(w http.ResponseWriter, r *http.Request) {
	name := domain.CollectionName(chi.URLParam(r, "name"))
	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.store.Put(r.Context(), name, req.Data); err != nil {
		h.writeStoreError(w, r, "put collection failed", name, err)
		return
	}
	h.metrics.RecordStorePut(name.String())
	writeOK(w)
}

func (h *Handler) handleClearCollection(w http.ResponseWriter, r *http.Request) {
	name := domain.CollectionName(chi.URLParam(r, "name"))
	if err := h.store.Clear(r.Context(), name); err != nil {
		h.writeStoreError(w, r, "clear collection failed", name, err)
		return
	}
	h.metrics.RecordStorePut(name.String())
	writeOK(w)
}

type importRequest struct {
	Collections map[domain.CollectionName][]json.RawMessage `json:"collections"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Collections) == 0 {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "no collections to import"))
		return
	}
	for name := range req.Collections {
		if !domain.ValidName(name) {
			writeError(w, dErrors.Newf(dErrors.CodeNotFound, "unknown collection %q", name))
			return
		}
	}
	if err := h.store.ImportBulk(r.Context(), req.Collections); err != nil {
		// Import is not atomic across collections; some entries may have
		// been applied before the failure.
		h.logger.ErrorContext(r.Context(), "bulk import failed", "error", err.Error())
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "bulk import failed", err))
		return
	}
	for name := range req.Collections {
		h.metrics.RecordStorePut(name.String())
	}
	writeOK(w)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, name domain.CollectionName, err error) {
	if errors.Is(err, store.ErrUnknownCollection) {
		writeError(w, dErrors.Newf(dErrors.CodeNotFound, "unknown collection %q", name))
		return
	}
	h.logger.ErrorContext(r.Context(), msg,
		"collection", name.String(),
		"error", err.Error(),
	)
	writeError(w, dErrors.Wrap(dErrors.CodeInternal, msg, err))
}
