package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/wm2snap/migrator/internal/client"
	"github.com/wm2snap/migrator/internal/events"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/service/validator"
	"github.com/wm2snap/migrator/internal/store"
)

type fakeMigrator struct {
	mu       sync.Mutex
	calls    []string
	response *client.MigrationResponse
	err      error
	release  chan struct{}
	started  chan struct{}
}

func (f *fakeMigrator) Migrate(ctx context.Context, projectName string, payload []byte) (*client.MigrationResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, projectName)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.response, f.err
}

func (f *fakeMigrator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

type recordingPublisher struct {
	kinds  []string
	events []events.MigrationEvent
	err    error
}

func (p *recordingPublisher) Write(_ context.Context, kind string, body io.Reader) error {
	if p.err != nil {
		return p.err
	}
	var event events.MigrationEvent
	if err := json.NewDecoder(body).Decode(&event); err != nil {
		return err
	}
	p.kinds = append(p.kinds, kind)
	p.events = append(p.events, event)
	return nil
}

func okResponse() *client.MigrationResponse {
	return &client.MigrationResponse{StatusCode: 200, Body: json.RawMessage(`{"status":"ok"}`)}
}

var _ = Describe("MigrationService", func() {
	var (
		migrator  *fakeMigrator
		estimator *service.EstimationService
		svc       *service.MigrationService
	)

	BeforeEach(func() {
		h, err := store.NewFileHistory(filepath.Join(GinkgoT().TempDir(), "migration_history.json"))
		Expect(err).To(BeNil())
		estimator, err = service.NewEstimationService(context.TODO(), h)
		Expect(err).To(BeNil())

		migrator = &fakeMigrator{response: okResponse()}
		svc = service.NewMigrationService(migrator, estimator)
	})

	Context("Validate", func() {
		DescribeTable("rejects invalid uploads with a distinct message",
			func(upload *service.Upload, message string) {
				err := svc.Validate(upload)
				var validationErr *service.ErrValidation
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(err.Error()).To(Equal(message))
			},
			Entry("no upload", nil, service.MsgMissingFile),
			Entry("no file name", &service.Upload{SizeBytes: 10}, service.MsgMissingFile),
			Entry("wrong extension", &service.Upload{FileName: "orders.tar", SizeBytes: 10}, service.MsgInvalidFileType),
			Entry("too large", &service.Upload{FileName: "orders.zip", SizeBytes: validator.MaxUploadBytes + 1}, service.MsgFileTooLarge),
		)

		It("accepts exactly 100 MiB", func() {
			Expect(svc.Validate(&service.Upload{FileName: "orders.zip", SizeBytes: validator.MaxUploadBytes})).To(Succeed())
		})

		It("has no side effects", func() {
			_ = svc.Validate(nil)
			Expect(svc.Current().Status).To(Equal(service.StatusIdle))
			Expect(migrator.Calls()).To(BeEmpty())
		})
	})

	Context("ProjectName", func() {
		It("strips the zip suffix only", func() {
			Expect(service.ProjectName("orders.zip")).To(Equal("orders"))
			Expect(service.ProjectName("my.zip.project.zip")).To(Equal("my.zip.project"))
			Expect(service.ProjectName(".zip")).To(BeEmpty())
		})
	})

	Context("Run", func() {
		It("completes and records the migration", func() {
			payload := make([]byte, 2*1024*1024)
			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", payload))

			Expect(outcome.Err).To(BeNil())
			Expect(outcome.Status).To(Equal(service.StatusCompleted))
			Expect(outcome.ProjectName).To(Equal("orders"))
			Expect(outcome.Message).To(Equal(service.MsgMigrationCompleted))
			Expect(outcome.Response).To(MatchJSON(`{"status":"ok"}`))
			Expect(outcome.Warning).To(BeEmpty())
			Expect(outcome.Record).NotTo(BeNil())
			Expect(outcome.Record.FileSizeMB).To(Equal(2.0))
			Expect(outcome.Record.DurationSeconds).To(BeNumerically(">=", 0))
			Expect(migrator.Calls()).To(Equal([]string{"orders"}))

			records, err := estimator.History(context.TODO())
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ProjectName).To(Equal("orders"))

			Expect(svc.Current().Status).To(Equal(service.StatusCompleted))
		})

		It("does not call the API for an invalid upload", func() {
			outcome := svc.Run(context.TODO(), service.NewUpload("orders.rar", []byte("x")))

			Expect(outcome.Status).To(Equal(service.StatusFailed))
			Expect(outcome.Message).To(Equal(service.MsgInvalidFileType))
			Expect(migrator.Calls()).To(BeEmpty())
		})

		It("rejects an empty project name", func() {
			outcome := svc.Run(context.TODO(), service.NewUpload(".zip", []byte("x")))

			Expect(outcome.Status).To(Equal(service.StatusFailed))
			Expect(outcome.Message).To(Equal(service.MsgInvalidProjectName))
			Expect(migrator.Calls()).To(BeEmpty())
		})

		It("fails without recording on an API error", func() {
			migrator.response = nil
			migrator.err = &client.APIError{StatusCode: 400, Message: "Invalid package", Details: json.RawMessage(`{"missing":"manifest.v3"}`)}

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			Expect(outcome.Status).To(Equal(service.StatusFailed))
			var apiErr *service.ErrAPI
			Expect(errors.As(outcome.Err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(400))
			Expect(outcome.Message).To(ContainSubstring("API Error: Invalid package"))
			Expect(outcome.Message).To(ContainSubstring(`"missing": "manifest.v3"`))

			records, err := estimator.History(context.TODO())
			Expect(err).To(BeNil())
			Expect(records).To(BeEmpty())
		})

		It("fails with a timeout network error", func() {
			migrator.response = nil
			migrator.err = fmt.Errorf("failed to call migration API: %w", &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded})

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			var netErr *service.ErrNetwork
			Expect(errors.As(outcome.Err, &netErr)).To(BeTrue())
			Expect(netErr.Kind).To(Equal(service.NetworkTimeout))
			Expect(outcome.Message).To(HavePrefix("Request Timeout:"))
		})

		It("fails with a connection network error", func() {
			migrator.response = nil
			migrator.err = fmt.Errorf("failed to call migration API: %w", &url.Error{
				Op:  "Post",
				URL: "http://x",
				Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			})

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			var netErr *service.ErrNetwork
			Expect(errors.As(outcome.Err, &netErr)).To(BeTrue())
			Expect(netErr.Kind).To(Equal(service.NetworkConnection))
			Expect(outcome.Message).To(HavePrefix("Connection Error:"))
		})

		It("reports other failures as unexpected", func() {
			migrator.response = nil
			migrator.err = errors.New("boom")

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			var unexpected *service.ErrUnexpected
			Expect(errors.As(outcome.Err, &unexpected)).To(BeTrue())
			Expect(outcome.Message).To(ContainSubstring("An unexpected error occurred during migration"))
			Expect(outcome.Message).To(ContainSubstring("boom"))
		})

		It("completes with a warning when the history cannot be saved", func() {
			failing, err := service.NewEstimationService(context.TODO(), &failingHistory{})
			Expect(err).To(BeNil())
			svc = service.NewMigrationService(migrator, failing)

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			Expect(outcome.Err).To(BeNil())
			Expect(outcome.Status).To(Equal(service.StatusCompleted))
			Expect(outcome.Record).To(BeNil())
			Expect(outcome.Warning).To(ContainSubstring("Migration history could not be saved"))
		})

		It("allows one migration at a time", func() {
			migrator.started = make(chan struct{})
			migrator.release = make(chan struct{})

			done := make(chan *service.Outcome)
			go func() {
				defer GinkgoRecover()
				done <- svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))
			}()

			Eventually(migrator.started).Should(BeClosed())
			Expect(svc.Current().Status).To(Equal(service.StatusInProgress))
			Expect(svc.Current().ProjectName).To(Equal("orders"))

			second := svc.Run(context.TODO(), service.NewUpload("billing.zip", []byte("x")))
			var inProgress *service.ErrMigrationInProgress
			Expect(errors.As(second.Err, &inProgress)).To(BeTrue())
			Expect(second.Message).To(ContainSubstring("orders"))

			Expect(errors.As(svc.Clear(), &inProgress)).To(BeTrue())

			close(migrator.release)
			var first *service.Outcome
			Eventually(done, 5*time.Second).Should(Receive(&first))
			Expect(first.Status).To(Equal(service.StatusCompleted))
			Expect(migrator.Calls()).To(Equal([]string{"orders"}))
		})
	})

	Context("events", func() {
		var publisher *recordingPublisher

		BeforeEach(func() {
			publisher = &recordingPublisher{}
			svc.WithEventPublisher(publisher)
		})

		It("publishes a completed event", func() {
			svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			Expect(publisher.kinds).To(Equal([]string{events.MigrationCompletedKind}))
			Expect(publisher.events[0].ProjectName).To(Equal("orders"))
			Expect(publisher.events[0].Status).To(Equal(string(service.StatusCompleted)))
		})

		It("publishes a failed event", func() {
			migrator.err = &client.APIError{StatusCode: 500, Message: "boom"}

			svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))

			Expect(publisher.kinds).To(Equal([]string{events.MigrationFailedKind}))
			Expect(publisher.events[0].Message).To(ContainSubstring("boom"))
		})

		It("keeps the outcome when publishing fails", func() {
			publisher.err = errors.New("broker down")

			outcome := svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))
			Expect(outcome.Err).To(BeNil())
			Expect(outcome.Status).To(Equal(service.StatusCompleted))
		})
	})

	Context("Clear", func() {
		It("resets the current migration to idle", func() {
			svc.Run(context.TODO(), service.NewUpload("orders.zip", []byte("x")))
			Expect(svc.Current().Status).To(Equal(service.StatusCompleted))

			Expect(svc.Clear()).To(Succeed())
			Expect(svc.Current()).To(Equal(service.Migration{Status: service.StatusIdle}))
		})
	})
})

var _ = Describe("UserMessage", func() {
	It("is empty for no error", func() {
		Expect(service.UserMessage(nil)).To(BeEmpty())
	})

	It("shows the raw body of a non JSON API error", func() {
		err := service.NewErrAPI(&client.APIError{StatusCode: 502, Body: "Bad Gateway"})
		Expect(service.UserMessage(err)).To(Equal("API Error (Status 502):\nBad Gateway"))
	})

	It("falls back to a default message for JSON errors without message", func() {
		err := service.NewErrAPI(&client.APIError{StatusCode: 500, Body: `{"code":17}`})
		Expect(service.UserMessage(err)).To(HavePrefix("API Error: Unknown error occurred"))
	})

	It("shows the cause of a generic network error", func() {
		err := service.NewErrNetwork(errors.New("tls: handshake failure"))
		Expect(err.Kind).To(Equal(service.NetworkGeneric))
		Expect(service.UserMessage(err)).To(Equal("Network Error:\ntls: handshake failure"))
	})

	It("shows store corruption", func() {
		err := store.NewErrStoreCorrupt("migration_history.json", errors.New("bad json"))
		Expect(strings.HasPrefix(service.UserMessage(err), "Migration history could not be read")).To(BeTrue())
	})

	It("wraps anything else as unexpected", func() {
		Expect(service.UserMessage(errors.New("boom"))).To(ContainSubstring(`"error": "boom"`))
	})
})
