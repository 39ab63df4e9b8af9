package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"textscan/internal/record"
)

// TextsHandler serves the record endpoints.
type TextsHandler struct {
	manager *record.Manager
	logger  *zap.Logger
}

// NewTextsHandler creates a new texts handler.
func NewTextsHandler(manager *record.Manager, logger *zap.Logger) *TextsHandler {
	return &TextsHandler{manager: manager, logger: logger}
}

// textResponse is the JSON shape of a record.
type textResponse struct {
	ID         int64          `json:"id"`
	Text       record.Content `json:"text"`
	Status     bool           `json:"status"`
	Duplicated bool           `json:"duplicated"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type createTextResponse struct {
	textResponse
	Message string `json:"message"`
}

func toTextResponse(r *record.Record) textResponse {
	return textResponse{
		ID:         r.ID,
		Text:       r.Content,
		Status:     r.Status,
		Duplicated: r.Duplicated,
		CreatedAt:  r.CreatedAt,
	}
}

type createTextRequest struct {
	Text *record.Content `json:"text"`
}

// Create handles POST /texts
func (h *TextsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTextRequest
	if err := decodeBody(w, r, &req); err != nil {
		if errors.Is(err, record.ErrMalformedContent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeDecodeError(w, err)
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, record.ErrInvalidContent.Error())
		return
	}

	rec, err := h.manager.Create(r.Context(), *req.Text)
	if err != nil {
		switch {
		case errors.Is(err, record.ErrInvalidContent):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, record.ErrConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to create record", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save record")
		}
		return
	}

	message := "record saved successfully"
	if rec.Duplicated {
		message = "record already exists"
	}

	writeJSON(w, http.StatusCreated, createTextResponse{
		textResponse: toTextResponse(rec),
		Message:      message,
	})
}

// List handles GET /texts
func (h *TextsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	duplicated, err := record.ParseDuplicated(q.Get("duplicated"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.manager.List(r.Context(), record.Filter{
		Section:    q.Get("section"),
		Colony:     q.Get("colony"),
		Duplicated: duplicated,
	})
	if err != nil {
		h.logger.Error("failed to list records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	response := make([]textResponse, len(records))
	for i, rec := range records {
		response[i] = toTextResponse(rec)
	}

	writeJSON(w, http.StatusOK, response)
}

type setStatusRequest struct {
	Status *bool `json:"status"`
}

// SetStatus handles PATCH /texts/{id}/status
func (h *TextsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record ID")
		return
	}

	var req setStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeDecodeError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "status must be a boolean")
		return
	}
	if req.Status == nil {
		writeError(w, http.StatusBadRequest, "status must be a boolean")
		return
	}

	rec, err := h.manager.SetStatus(r.Context(), id, *req.Status)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to update record status", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update record")
		return
	}

	writeJSON(w, http.StatusOK, toTextResponse(rec))
}

// DeleteAll handles DELETE /texts
func (h *TextsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.manager.DeleteAll(r.Context())
	if err != nil {
		h.logger.Error("failed to delete records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete records")
		return
	}

	h.logger.Info("all records deleted", zap.Int64("deleted", n))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "all records deleted",
		"deleted": n,
	})
}
