package handler

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"textscan/internal/jwtauth"
	"textscan/internal/profile"
)

// ProfilesHandler serves the caller's own profile.
type ProfilesHandler struct {
	manager *profile.Manager
	logger  *zap.Logger
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(manager *profile.Manager, logger *zap.Logger) *ProfilesHandler {
	return &ProfilesHandler{manager: manager, logger: logger}
}

type profileResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Reference string    `json:"reference"`
	IsLeader  bool      `json:"isLeader"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProfileResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		UID:       p.UID,
		Email:     p.Email,
		Name:      p.Name,
		Phone:     p.Phone,
		Reference: p.Reference,
		IsLeader:  p.IsLeader,
		CreatedAt: p.CreatedAt,
	}
}

// Get handles GET /users/me
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := jwtauth.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	p, err := h.manager.Get(r.Context(), claims.UID())
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get profile", zap.String("uid", claims.UID()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

type registerRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Reference string `json:"reference"`
}

// Register handles POST /users/me
func (h *ProfilesHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims := jwtauth.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	p, created, err := h.manager.Register(r.Context(), claims, profile.Registration{
		Name:      req.Name,
		Phone:     req.Phone,
		Reference: req.Reference,
	})
	if err != nil {
		if errors.Is(err, profile.ErrInvalidProfile) || errors.Is(err, profile.ErrMissingIdentity) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to register profile", zap.String("uid", claims.UID()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toProfileResponse(p))
}
