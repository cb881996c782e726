package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/pkg/requestid"
)

type ServiceHandler struct {
	estimationSrv *service.EstimationService
	migrationSrv  *service.MigrationService
}

func NewServiceHandler(estimationSrv *service.EstimationService, migrationSrv *service.MigrationService) *ServiceHandler {
	return &ServiceHandler{
		estimationSrv: estimationSrv,
		migrationSrv:  migrationSrv,
	}
}

// Routes mounts every endpoint of the service on r.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", h.GetInfo)
		r.Post("/estimates", h.CreateEstimate)
		r.Get("/statistics", h.GetStatistics)

		r.Route("/migrations", func(r chi.Router) {
			r.Post("/", h.CreateMigration)
			r.Get("/", h.ListMigrations)
			r.Get("/current", h.GetCurrentMigration)
			r.Delete("/current", h.DeleteCurrentMigration)
		})
	})
}

type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Message: message, RequestID: requestid.FromRequest(r)})
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
