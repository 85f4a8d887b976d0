package observability

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var auditLogger atomic.Pointer[zap.Logger]

func init() {
	auditLogger.Store(zap.NewNop())
}

// Audit returns the moderation audit trail logger. It is a no-op until Init runs.
func Audit() *zap.Logger {
	return auditLogger.Load()
}

func setAudit(l *zap.Logger) {
	auditLogger.Store(l)
}

func newAuditLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.WithMessage(err, "cant build audit logger")
	}
	return l.Named("audit"), nil
}
