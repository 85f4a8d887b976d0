package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestInitWritesAuditTrail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	shutdown, err := Init(context.Background(), path)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Audit().Info("warn", zap.String("user", "u1"), zap.Int("count", 1))
	RecordViolation("link")
	RecordEnforcement("kick", true)
	RecordCommand("ping", "ok")
	StartMessageProcessing()("passed")

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), `"user":"u1"`) {
		t.Fatalf("audit log %q does not contain the entry", data)
	}
}

func TestMetricsServerServesMetrics(t *testing.T) {
	t.Parallel()

	s := NewMetricsServer("127.0.0.1:0")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}
