package service_test

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/wm2snap/migrator/internal/estimation"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/store"
	"github.com/wm2snap/migrator/internal/store/model"
)

// failingHistory accepts reads and rejects every append.
type failingHistory struct {
	records []model.MigrationRecord
}

func (f *failingHistory) List(context.Context) ([]model.MigrationRecord, error) {
	return f.records, nil
}

func (f *failingHistory) Append(_ context.Context, r model.MigrationRecord) (model.MigrationRecord, error) {
	return model.MigrationRecord{}, store.NewErrStoreWrite("test", errors.New("disk full"))
}

func (f *failingHistory) Close() error { return nil }

func seed(h store.History, records ...model.MigrationRecord) {
	for _, r := range records {
		_, err := h.Append(context.TODO(), r)
		Expect(err).To(BeNil())
	}
}

var _ = Describe("EstimationService", func() {
	var (
		history store.History
		svc     *service.EstimationService
	)

	BeforeEach(func() {
		h, err := store.NewFileHistory(filepath.Join(GinkgoT().TempDir(), "migration_history.json"))
		Expect(err).To(BeNil())
		history = h
	})

	newService := func() {
		s, err := service.NewEstimationService(context.TODO(), history)
		Expect(err).To(BeNil())
		svc = s
	}

	Context("Estimate", func() {
		It("uses the size based estimate without history", func() {
			newService()

			result, err := svc.Estimate(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(result.Method).To(Equal(estimation.MethodSizeBased))
			Expect(result.Confidence).To(Equal(estimation.ConfidenceMedium))
			Expect(result.EstimatedSeconds).To(Equal(180.0))
			Expect(result.Formatted).To(Equal("3.0 minutes"))
		})

		It("uses the median of similar sizes", func() {
			seed(history,
				model.MigrationRecord{ProjectName: "a", FileSizeMB: 2, DurationSeconds: 100},
				model.MigrationRecord{ProjectName: "b", FileSizeMB: 2.5, DurationSeconds: 120},
				model.MigrationRecord{ProjectName: "c", FileSizeMB: 1.5, DurationSeconds: 80},
			)
			newService()

			result, err := svc.Estimate(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(result.Method).To(Equal(estimation.MethodHistoricalMedian))
			Expect(result.Confidence).To(Equal(estimation.ConfidenceHigh))
			Expect(result.SampleSize).To(Equal(3))
			Expect(result.EstimatedSeconds).To(Equal(200.0))
			Expect(result.SizeRange).NotTo(BeNil())
			Expect(result.SizeRange.MinMB).To(Equal(1.5))
			Expect(result.SizeRange.MaxMB).To(Equal(2.5))
		})

		It("rejects a negative size", func() {
			newService()

			_, err := svc.Estimate(context.TODO(), -1)
			var invalid *estimation.ErrInvalidInput
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})
	})

	Context("Record", func() {
		It("appends to the store and to memory", func() {
			newService()

			stored, err := svc.Record(context.TODO(), model.MigrationRecord{ProjectName: "orders", FileSizeMB: 2, DurationSeconds: 90})
			Expect(err).To(BeNil())
			Expect(stored.Timestamp.IsZero()).To(BeFalse())

			records, err := svc.History(context.TODO())
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(1))

			persisted, err := history.List(context.TODO())
			Expect(err).To(BeNil())
			Expect(persisted).To(HaveLen(1))
		})

		It("leaves memory untouched when the store fails", func() {
			history = &failingHistory{}
			newService()

			_, err := svc.Record(context.TODO(), model.MigrationRecord{ProjectName: "orders", FileSizeMB: 2, DurationSeconds: 90})
			var writeErr *store.ErrStoreWrite
			Expect(errors.As(err, &writeErr)).To(BeTrue())

			records, err := svc.History(context.TODO())
			Expect(err).To(BeNil())
			Expect(records).To(BeEmpty())
		})
	})

	Context("Statistics", func() {
		It("is all zero for an empty history", func() {
			newService()

			stats, err := svc.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats).To(Equal(estimation.Statistics{}))
		})

		It("aggregates the recorded migrations", func() {
			seed(history,
				model.MigrationRecord{ProjectName: "a", FileSizeMB: 1, DurationSeconds: 60},
				model.MigrationRecord{ProjectName: "b", FileSizeMB: 3, DurationSeconds: 180},
			)
			newService()

			stats, err := svc.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalMigrations).To(Equal(2))
			Expect(stats.AverageTime).To(Equal(120.0))
			Expect(stats.MedianSize).To(Equal(2.0))
			Expect(stats.MinTime).To(Equal(60.0))
			Expect(stats.MaxSize).To(Equal(3.0))
		})
	})
})
