package handler

import (
	"net/http"

	"textscan/internal/config"
)

// Version is the service version, overridable at build time with
// -ldflags "-X textscan/internal/handler.Version=...".
var Version = "0.1.0"

func statusHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":     "textscan",
			"version":     Version,
			"environment": cfg.Environment,
			"status":      "operational",
		})
	}
}
