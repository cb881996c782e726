package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wm2snap/migrator/internal/estimation"
	"go.uber.org/zap"
)

// HistoryStatistics is implemented by whatever owns the migration history.
type HistoryStatistics interface {
	Statistics(ctx context.Context) (estimation.Statistics, error)
}

type historyStatsCollector struct {
	source          HistoryStatistics
	totalMigrations *prometheus.Desc
	averageSeconds  *prometheus.Desc
	medianSeconds   *prometheus.Desc
	averageSizeMB   *prometheus.Desc
	medianSizeMB    *prometheus.Desc
}

func newHistoryStatsCollector(s HistoryStatistics) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_history_%s", migrator, name)
	}

	return &historyStatsCollector{
		source: s,
		totalMigrations: prometheus.NewDesc(
			fqName("migrations"),
			"Number of migrations recorded in the history.",
			nil,
			prometheus.Labels{},
		),
		averageSeconds: prometheus.NewDesc(
			fqName("average_duration_seconds"),
			"Average duration of recorded migrations.",
			nil,
			prometheus.Labels{},
		),
		medianSeconds: prometheus.NewDesc(
			fqName("median_duration_seconds"),
			"Median duration of recorded migrations.",
			nil,
			prometheus.Labels{},
		),
		averageSizeMB: prometheus.NewDesc(
			fqName("average_size_mb"),
			"Average archive size of recorded migrations.",
			nil,
			prometheus.Labels{},
		),
		medianSizeMB: prometheus.NewDesc(
			fqName("median_size_mb"),
			"Median archive size of recorded migrations.",
			nil,
			prometheus.Labels{},
		),
	}
}

// RegisterHistoryCollector exposes history statistics on the default registry.
func RegisterHistoryCollector(s HistoryStatistics) error {
	return prometheus.Register(newHistoryStatsCollector(s))
}

func (c *historyStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalMigrations
	ch <- c.averageSeconds
	ch <- c.medianSeconds
	ch <- c.averageSizeMB
	ch <- c.medianSizeMB
}

// Collect implements Collector.
func (c *historyStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.source.Statistics(ctx)
	if err != nil {
		zap.S().Named("history_collector").Errorf("failed to collect history statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalMigrations, prometheus.GaugeValue, float64(stats.TotalMigrations))
	ch <- prometheus.MustNewConstMetric(c.averageSeconds, prometheus.GaugeValue, stats.AverageTime)
	ch <- prometheus.MustNewConstMetric(c.medianSeconds, prometheus.GaugeValue, stats.MedianTime)
	ch <- prometheus.MustNewConstMetric(c.averageSizeMB, prometheus.GaugeValue, stats.AverageSize)
	ch <- prometheus.MustNewConstMetric(c.medianSizeMB, prometheus.GaugeValue, stats.MedianSize)
}
