package scan

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBuildReportCounts(t *testing.T) {
	records := sampleRecords()
	report, err := BuildReport(records, Classify(records))
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}

	if report.Summary.TotalScanned != 4 {
		t.Fatalf("TotalScanned = %d, want 4", report.Summary.TotalScanned)
	}
	if report.Summary.TotalValid != 3 {
		t.Fatalf("TotalValid = %d, want 3", report.Summary.TotalValid)
	}
	if report.Summary.TotalWorking != 2 {
		t.Fatalf("TotalWorking = %d, want 2", report.Summary.TotalWorking)
	}
	if report.Summary.PerSource["a"] != 2 || report.Summary.PerSource["b"] != 2 {
		t.Fatalf("PerSource = %v, want a:2 b:2", report.Summary.PerSource)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not set")
	}
}

func TestBuildReportDetectsInconsistency(t *testing.T) {
	records := sampleRecords()
	views := Classify(records)
	views.Validity[KeyValid] = views.Validity[KeyValid][:1]

	if _, err := BuildReport(records, views); !errors.Is(err, ErrInconsistentReport) {
		t.Fatalf("got err %v, want ErrInconsistentReport", err)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	report, err := BuildReport(nil, Classify(nil))
	if err != nil {
		t.Fatalf("BuildReport returned error for empty input: %v", err)
	}
	if report.Summary.TotalScanned != 0 || report.Summary.TotalValid != 0 {
		t.Fatalf("empty report has counts: %+v", report.Summary)
	}
}

// Two candidates run through the full pipeline: one answers the handshake and
// reaches its target, the other hangs until the per-task timeout fires. The
// report must show both scanned, one valid, one working.
func TestScanPipelineMixedOutcome(t *testing.T) {
	prober := &stubProber{
		results: map[string]ProbeResult{
			"10.0.0.1:1080": {Valid: true, Latency: 8 * time.Millisecond},
		},
		delayFor: map[string]time.Duration{
			"10.0.0.2:1080": 5 * time.Second,
		},
	}
	checker := &stubChecker{results: map[string]TargetResult{
		"intra.example.com/health": {Reached: true, Latency: 15 * time.Millisecond},
	}}

	pool := NewPool(prober, checker, PoolConfig{Concurrency: 2, TaskTimeout: 200 * time.Millisecond})
	records := pool.Run(context.Background(), []Candidate{
		{Host: "10.0.0.1", Port: 1080, Source: "list"},
		{Host: "10.0.0.2", Port: 1080, Source: "list"},
	})

	report, err := BuildReport(records, Classify(records))
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}

	if report.Summary.TotalScanned != 2 {
		t.Fatalf("TotalScanned = %d, want 2", report.Summary.TotalScanned)
	}
	if report.Summary.TotalValid != 1 {
		t.Fatalf("TotalValid = %d, want 1", report.Summary.TotalValid)
	}
	if report.Summary.TotalWorking != 1 {
		t.Fatalf("TotalWorking = %d, want 1", report.Summary.TotalWorking)
	}

	reached := report.Views.Reachable["intra.example.com/health"]
	if len(reached) != 1 || reached[0] != "10.0.0.1:1080" {
		t.Fatalf("reachable group was %v, want [10.0.0.1:1080]", reached)
	}

	for _, rec := range records {
		if rec.Address() == "10.0.0.2:1080" && rec.Failure != FailureTimeout {
			t.Fatalf("hung candidate has failure %s, want %s", rec.Failure, FailureTimeout)
		}
	}
}
