package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/nanostore/pkg/engine"

// Metrics holds the Prometheus collectors shared by instrumented engines.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers engine collectors with reg under namespace.
// Register once per registry and share the result between engines.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "nanostore"
	}
	factory := promauto.With(reg)
	return &Metrics{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Storage engine operations by engine, operation and result",
		}, []string{"engine", "op", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Storage engine operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "op"}),
	}
}

// InstrumentOption configures Instrument.
type InstrumentOption func(*instrumented)

// WithTracer sets the tracer. Default: otel.Tracer from the global provider.
func WithTracer(t trace.Tracer) InstrumentOption {
	return func(i *instrumented) {
		i.tracer = t
	}
}

// Instrument wraps e so every operation is counted, timed and traced.
// name labels the engine in metrics and spans. m may be nil to skip metrics.
func Instrument(e Engine, name string, m *Metrics, opts ...InstrumentOption) Engine {
	i := &instrumented{
		inner:   e,
		name:    name,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type instrumented struct {
	inner   Engine
	name    string
	metrics *Metrics
	tracer  trace.Tracer
}

func (i *instrumented) observe(op, key string, fn func() error) error {
	_, span := i.tracer.Start(context.Background(), "engine."+op,
		trace.WithAttributes(
			attribute.String("nanostore.engine", i.name),
			attribute.String("nanostore.key", key),
		))
	defer span.End()

	start := time.Now()
	err := fn()

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if i.metrics != nil {
		i.metrics.ops.WithLabelValues(i.name, op, result).Inc()
		i.metrics.duration.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())
	}
	return err
}

func (i *instrumented) Get(key string) (value string, ok bool, err error) {
	err = i.observe("get", key, func() error {
		var innerErr error
		value, ok, innerErr = i.inner.Get(key)
		return innerErr
	})
	return value, ok, err
}

func (i *instrumented) Set(key, value string) error {
	return i.observe("set", key, func() error {
		return i.inner.Set(key, value)
	})
}

func (i *instrumented) Delete(key string) error {
	return i.observe("delete", key, func() error {
		return i.inner.Delete(key)
	})
}

func (i *instrumented) Keys() (keys []string, err error) {
	err = i.observe("keys", "", func() error {
		var innerErr error
		keys, innerErr = i.inner.Keys()
		return innerErr
	})
	return keys, err
}

// Unwrap returns the wrapped engine.
func (i *instrumented) Unwrap() Engine {
	return i.inner
}
