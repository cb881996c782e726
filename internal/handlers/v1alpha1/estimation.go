package v1alpha1

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/render"
	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/pkg/log"
)

// multipart parts above this stay on disk while the form is parsed
const maxFormMemory = 32 << 20

type EstimateRequest struct {
	FileSizeMB *float64 `json:"file_size_mb"`
}

type EstimateResponse struct {
	FileSizeMB float64 `json:"file_size_mb"`
	estimation.Estimation
}

// (POST /api/v1/estimates)
func (h *ServiceHandler) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("estimation_handler").
		WithContext(r.Context()).
		Operation("create_estimate").
		Build()

	sizeMB, err := estimateSize(r)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logger.Step("estimate").WithFloat("file_size_mb", sizeMB).Log()

	result, err := h.estimationSrv.Estimate(r.Context(), sizeMB)
	if err != nil {
		var invalid *estimation.ErrInvalidInput
		if errors.As(err, &invalid) {
			logger.Error(err).Log()
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, "failed to estimate migration time")
		return
	}

	logger.Success().WithString("method", string(result.Method)).Log()

	respond(w, r, http.StatusOK, EstimateResponse{FileSizeMB: sizeMB, Estimation: result})
}

// (GET /api/v1/statistics)
func (h *ServiceHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.estimationSrv.Statistics(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	respond(w, r, http.StatusOK, stats)
}

// estimateSize reads the size either from a JSON body or from the size of an uploaded file.
func estimateSize(r *http.Request) (float64, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return 0, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return 0, fmt.Errorf("missing form file %q", "file")
		}
		_ = file.Close()
		return float64(header.Size) / (1024 * 1024), nil
	}

	var req EstimateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return 0, fmt.Errorf("invalid request body: %w", err)
	}
	if req.FileSizeMB == nil {
		return 0, fmt.Errorf("file_size_mb is required")
	}
	return *req.FileSizeMB, nil
}
