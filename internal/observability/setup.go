package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/iamwavecut/shopkeeper"

var (
	registerOnce sync.Once

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopkeeper_violations_total",
			Help: "Violations detected in group messages",
		},
		[]string{"kind"},
	)

	enforcementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopkeeper_enforcements_total",
			Help: "Moderation actions taken",
		},
		[]string{"action", "status"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopkeeper_commands_total",
			Help: "Command dispatches by name and outcome",
		},
		[]string{"command", "outcome"},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopkeeper_message_processing_duration_seconds",
			Help:    "Time spent processing messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// Init registers metrics, installs the tracer provider and opens the audit log.
// The returned func flushes and releases both.
func Init(ctx context.Context, auditPath string) (func(context.Context) error, error) {
	registerOnce.Do(func() {
		prometheus.MustRegister(violationsTotal, enforcementsTotal, commandsTotal, messageProcessingDuration)
	})

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	audit, err := newAuditLogger(auditPath)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	setAudit(audit)

	return func(ctx context.Context) error {
		_ = audit.Sync()
		setAudit(zap.NewNop())
		return tp.Shutdown(ctx)
	}, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func RecordViolation(kind string) {
	violationsTotal.WithLabelValues(kind).Inc()
}

func RecordEnforcement(action string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	enforcementsTotal.WithLabelValues(action, status).Inc()
}

func RecordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// StartMessageProcessing returns a func that observes the elapsed time under the given status.
func StartMessageProcessing() func(status string) {
	var status string
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		messageProcessingDuration.WithLabelValues(status).Observe(v)
	}))
	return func(s string) {
		status = s
		timer.ObserveDuration()
	}
}
