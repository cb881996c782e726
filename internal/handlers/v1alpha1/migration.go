package v1alpha1

import (
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/service/validator"
	"github.com/wm2snap/migrator/pkg/log"
)

// Room for the multipart envelope around an archive of the maximum size.
const maxRequestBytes = validator.MaxUploadBytes + 10<<20

// (POST /api/v1/migrations)
func (h *ServiceHandler) CreateMigration(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("migration_handler").
		WithContext(r.Context()).
		Operation("create_migration").
		Build()

	upload, err := h.readUpload(w, r)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, statusFor(err), service.UserMessage(err))
		return
	}

	if upload != nil {
		logger.Step("upload_received").
			WithString("file_name", upload.FileName).
			WithFloat("file_size_mb", upload.SizeMB()).
			Log()
	}

	outcome := h.migrationSrv.Run(r.Context(), upload)
	if outcome.Err != nil {
		logger.Error(outcome.Err).WithString("status", string(outcome.Status)).Log()
		respond(w, r, statusFor(outcome.Err), outcome)
		return
	}

	logger.Success().
		WithString("project_name", outcome.ProjectName).
		WithFloat("duration_seconds", outcome.DurationSeconds).
		Log()

	respond(w, r, http.StatusCreated, outcome)
}

// (GET /api/v1/migrations)
func (h *ServiceHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	records, err := h.estimationSrv.History(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, service.UserMessage(err))
		return
	}
	slices.Reverse(records)
	respond(w, r, http.StatusOK, records)
}

// (GET /api/v1/migrations/current)
func (h *ServiceHandler) GetCurrentMigration(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.migrationSrv.Current())
}

// (DELETE /api/v1/migrations/current)
func (h *ServiceHandler) DeleteCurrentMigration(w http.ResponseWriter, r *http.Request) {
	if err := h.migrationSrv.Clear(); err != nil {
		respondError(w, r, statusFor(err), service.UserMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads the archive of a valid upload. A missing or invalid file is returned
// without its payload so that Run records the rejection. Only an oversized request body fails here.
func (h *ServiceHandler) readUpload(w http.ResponseWriter, r *http.Request) (*service.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, service.NewErrValidation(service.MsgFileTooLarge)
		}
		return nil, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil
	}
	defer func() {
		_ = file.Close()
	}()

	upload := &service.Upload{FileName: header.Filename, SizeBytes: header.Size}
	if err := h.migrationSrv.Validate(upload); err != nil {
		return upload, nil
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, service.NewErrUnexpected(err)
	}
	upload.Payload = payload
	upload.SizeBytes = int64(len(payload))

	return upload, nil
}

func statusFor(err error) int {
	var (
		validationErr *service.ErrValidation
		inProgressErr *service.ErrMigrationInProgress
		apiErr        *service.ErrAPI
		networkErr    *service.ErrNetwork
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &inProgressErr):
		return http.StatusConflict
	case errors.As(err, &apiErr), errors.As(err, &networkErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
