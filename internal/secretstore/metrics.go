package secretstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dverrors "github.com/systmms/dsvault/internal/errors"
)

// Metrics records store activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	operations      *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// NewMetrics creates the store metrics and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsvault_cache_hits_total",
			Help: "Total number of decrypts served from the in-memory cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsvault_cache_misses_total",
			Help: "Total number of cache-enabled decrypts that had to read the record",
		}),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsvault_operations_total",
				Help: "Total number of store operations by outcome",
			},
			[]string{"op", "result"},
		),
		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dsvault_backend_duration_seconds",
				Help:    "Duration of cipher backend calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"op", "backend"},
		),
	}
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) cacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) operation(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) observeBackend(op, backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(op, backend).Observe(d.Seconds())
}

var resultLabels = map[dverrors.Kind]string{
	dverrors.KeyNotFound:       "key_not_found",
	dverrors.KeyEmpty:          "key_empty",
	dverrors.KeyReadError:      "key_read_error",
	dverrors.KeyUnavailable:    "key_unavailable",
	dverrors.SecretNotFound:    "secret_not_found",
	dverrors.InvalidName:       "invalid_name",
	dverrors.DecryptionFailed:  "decryption_failed",
	dverrors.DecryptionTimeout: "decryption_timeout",
	dverrors.EmptyPlaintext:    "empty_plaintext",
	dverrors.EncryptionFailed:  "encryption_failed",
	dverrors.EncryptionTimeout: "encryption_timeout",
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if label, ok := resultLabels[dverrors.KindOf(err)]; ok {
		return label
	}
	return "error"
}
