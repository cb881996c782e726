package v1alpha1

import (
	"net/http"

	"github.com/wm2snap/migrator/pkg/version"
)

type HealthResponse struct {
	Status string `json:"status"`
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// (GET /api/v1/info)
func (h *ServiceHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, version.Get())
}
