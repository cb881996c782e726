package v1alpha1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/wm2snap/migrator/internal/client"
	handlers "github.com/wm2snap/migrator/internal/handlers/v1alpha1"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/store"
	"github.com/wm2snap/migrator/internal/store/model"
)

type stubMigrator struct {
	err   error
	calls int
}

func (s *stubMigrator) Migrate(_ context.Context, _ string, _ []byte) (*client.MigrationResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &client.MigrationResponse{StatusCode: http.StatusOK, Body: json.RawMessage(`{"status":"ok"}`)}, nil
}

func multipartBody(fileName string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		Expect(err).To(BeNil())
		_, err = part.Write(content)
		Expect(err).To(BeNil())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("handlers", func() {
	var (
		router     chi.Router
		migrator   *stubMigrator
		history    store.History
		estimator  *service.EstimationService
		migrations *service.MigrationService
	)

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		h, err := store.NewFileHistory(filepath.Join(GinkgoT().TempDir(), "migration_history.json"))
		Expect(err).To(BeNil())
		history = h

		estimator, err = service.NewEstimationService(context.TODO(), history)
		Expect(err).To(BeNil())

		migrator = &stubMigrator{}
		migrations = service.NewMigrationService(migrator, estimator)

		router = chi.NewRouter()
		handlers.NewServiceHandler(estimator, migrations).Routes(router)
	})

	Context("estimates", func() {
		It("estimates from a JSON size", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates", strings.NewReader(`{"file_size_mb": 2}`))
			req.Header.Set("Content-Type", "application/json")
			rec := do(req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp handlers.EstimateResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.FileSizeMB).To(Equal(2.0))
			Expect(resp.EstimatedSeconds).To(Equal(180.0))
			Expect(resp.Formatted).To(Equal("3.0 minutes"))
			Expect(string(resp.Method)).To(Equal("size_based"))
		})

		It("estimates from an uploaded file", func() {
			body, contentType := multipartBody("orders.zip", make([]byte, 1024*1024))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates", body)
			req.Header.Set("Content-Type", contentType)
			rec := do(req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp handlers.EstimateResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.FileSizeMB).To(Equal(1.0))
			// 60 * 2.0 + 30 * 1
			Expect(resp.EstimatedSeconds).To(Equal(150.0))
		})

		It("rejects a missing size", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			Expect(do(req).Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a negative size", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/estimates", strings.NewReader(`{"file_size_mb": -1}`))
			req.Header.Set("Content-Type", "application/json")
			Expect(do(req).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("migrations", func() {
		It("runs a migration and lists it", func() {
			body, contentType := multipartBody("orders.zip", []byte("PK archive"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
			req.Header.Set("Content-Type", contentType)
			rec := do(req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"completed"`))
			Expect(rec.Body.String()).To(ContainSubstring(`"project_name":"orders"`))
			Expect(migrator.calls).To(Equal(1))

			rec = do(httptest.NewRequest(http.MethodGet, "/api/v1/migrations", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var records []model.MigrationRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ProjectName).To(Equal("orders"))
		})

		It("lists the history newest first", func() {
			for _, name := range []string{"first", "second"} {
				_, err := estimator.Record(context.TODO(), model.MigrationRecord{ProjectName: name, FileSizeMB: 1, DurationSeconds: 10})
				Expect(err).To(BeNil())
			}

			rec := do(httptest.NewRequest(http.MethodGet, "/api/v1/migrations", nil))
			var records []model.MigrationRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
			Expect(records[0].ProjectName).To(Equal("second"))
			Expect(records[1].ProjectName).To(Equal("first"))

			persisted, err := history.List(context.TODO())
			Expect(err).To(BeNil())
			Expect(persisted[0].ProjectName).To(Equal("first"))
		})

		DescribeTable("rejects invalid uploads",
			func(fileName string, message string) {
				body, contentType := multipartBody(fileName, []byte("x"))
				req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
				req.Header.Set("Content-Type", contentType)
				rec := do(req)

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				var resp handlers.ErrorResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Message).To(Equal(message))
				Expect(migrator.calls).To(Equal(0))
			},
			Entry("no file", "", service.MsgMissingFile),
			Entry("not a zip", "orders.tar", service.MsgInvalidFileType),
			Entry("empty project name", ".zip", service.MsgInvalidProjectName),
		)

		It("marks the current migration failed after a rejected upload", func() {
			body, contentType := multipartBody("orders.zip", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
			req.Header.Set("Content-Type", contentType)
			Expect(do(req).Code).To(Equal(http.StatusCreated))

			body, contentType = multipartBody("orders.rar", []byte("x"))
			req = httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
			req.Header.Set("Content-Type", contentType)
			Expect(do(req).Code).To(Equal(http.StatusBadRequest))

			rec := do(httptest.NewRequest(http.MethodGet, "/api/v1/migrations/current", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var current service.Migration
			Expect(json.Unmarshal(rec.Body.Bytes(), &current)).To(Succeed())
			Expect(current.Status).To(Equal(service.StatusFailed))
			Expect(current.Message).To(Equal(service.MsgInvalidFileType))
			Expect(migrator.calls).To(Equal(1))
		})

		It("maps API failures to bad gateway", func() {
			migrator.err = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid token"}

			body, contentType := multipartBody("orders.zip", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
			req.Header.Set("Content-Type", contentType)
			rec := do(req)

			Expect(rec.Code).To(Equal(http.StatusBadGateway))
			Expect(rec.Body.String()).To(ContainSubstring("Invalid token"))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"failed"`))
		})

		It("shows and clears the current migration", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/api/v1/migrations/current", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"idle"`))

			body, contentType := multipartBody("orders.zip", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations", body)
			req.Header.Set("Content-Type", contentType)
			Expect(do(req).Code).To(Equal(http.StatusCreated))

			rec = do(httptest.NewRequest(http.MethodGet, "/api/v1/migrations/current", nil))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"completed"`))

			rec = do(httptest.NewRequest(http.MethodDelete, "/api/v1/migrations/current", nil))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(migrations.Current().Status).To(Equal(service.StatusIdle))
		})
	})

	Context("statistics and pages", func() {
		It("returns zero statistics for an empty history", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"total_migrations":0`))
		})

		It("renders the index page", func() {
			_, err := estimator.Record(context.TODO(), model.MigrationRecord{ProjectName: "orders", FileSizeMB: 2, DurationSeconds: 150})
			Expect(err).To(BeNil())

			rec := do(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			Expect(rec.Body.String()).To(ContainSubstring("orders"))
			Expect(rec.Body.String()).To(ContainSubstring("2.5 minutes"))
			Expect(rec.Body.String()).To(ContainSubstring("Migration Statistics"))
		})

		It("renders the file details, estimate fields and clear action", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			page := rec.Body.String()
			Expect(page).To(ContainSubstring("File Details"))
			Expect(page).To(ContainSubstring("est.complexity"))
			Expect(page).To(ContainSubstring("est.size_range"))
			Expect(page).To(ContainSubstring(`id="clear"`))
			Expect(page).To(ContainSubstring(`fetch("/api/v1/migrations/current", { method: "DELETE" })`))
		})

		It("answers health checks", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
