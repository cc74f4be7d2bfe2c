package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("sections", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncStageResult("sections", ResultSuccess)
	pr.IncRunOutcome("success")
	pr.IncRetry("section")
	pr.IncUnitFlag(UnitRepaired)
	pr.IncIssue("use_client", "error")
	pr.SetSectionWorkers(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRetry("section")
	pr.ObserveUnitDuration(time.Second)
	pr.SetSectionWorkers(2)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRunOutcome("failed")

	path := filepath.Join(t.TempDir(), "nested", "webbuilder.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `webbuilder_run_outcomes_total{outcome="failed"} 1`) {
		t.Fatalf("expected run outcome sample, got:\n%s", data)
	}
}
