// Package metrics keeps lightweight operational counters in an
// embedded time-series store under the workdir. All record functions
// are no-ops until InitMetrics has run, so unit tests need no setup.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

const (
	MetricAPIRequest       = "api_request"
	MetricOrderCreated     = "order_created"
	MetricOrderPaid        = "order_paid"
	MetricCheckoutDuration = "checkout_duration_ms"
	MetricSystemCPU        = "system_cpu_percent"
	MetricSystemMem        = "system_mem_percent"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage
)

func InitMetrics(workdir string) error {
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = st
	mu.Unlock()
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// RecordValue appends one datapoint to the named metric.
func RecordValue(metric string, value float64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric: metric,
		DataPoint: tstorage.DataPoint{
			Timestamp: time.Now().Unix(),
			Value:     value,
		},
	}})
}

func RecordAPIRequest()                 { RecordValue(MetricAPIRequest, 1) }
func RecordOrderCreated(amount float64) { RecordValue(MetricOrderCreated, amount) }
func RecordOrderPaid(amount float64)    { RecordValue(MetricOrderPaid, amount) }
func RecordCheckoutDuration(ms float64) { RecordValue(MetricCheckoutDuration, ms) }

// RangeValues returns the raw values of a metric between start and end
// (unix seconds). A missing metric yields an empty slice.
func RangeValues(metric string, start, end int64) []float64 {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return nil
	}
	points, err := storage.Select(metric, nil, start, end)
	if err != nil {
		return nil
	}
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	return values
}
