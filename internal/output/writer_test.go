package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"socksweep/pkg/scan"
)

func sampleReport(t *testing.T) *scan.Report {
	t.Helper()

	records := []scan.Record{
		{
			Host: "1.1.1.1", Port: 1080, Source: "a", Valid: true,
			Latency: 42 * time.Millisecond, Province: "广东", Carrier: "中国电信",
			Reachability: map[string]scan.TargetResult{
				"intra.example.com/health": {Reached: true},
			},
			TestedAt: time.Now(),
		},
		{
			Host: "2.2.2.2", Port: 9050, Source: "b", Valid: false,
			Failure: scan.FailureConnectionRefused, TestedAt: time.Now(),
		},
	}

	report, err := scan.BuildReport(records, scan.Classify(records))
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}
	return report
}

func TestWriteAllFormats(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"json", "txt", "csv"})

	paths, err := w.Write(sampleReport(t), "20260830_120000")
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d files, want 3", len(paths))
	}

	for _, name := range []string{
		"results_20260830_120000.json",
		"proxies_20260830_120000.txt",
		"results_20260830_120000.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"json"})

	report := sampleReport(t)
	paths, err := w.Write(report, "ts")
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var decoded scan.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Summary.TotalScanned != report.Summary.TotalScanned {
		t.Fatalf("summary lost in serialization: %+v", decoded.Summary)
	}
	if !strings.Contains(string(data), `"connection_refused"`) {
		t.Fatal("failure kind not serialized as its string form")
	}
}

func TestWriteTXT(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"txt"})

	paths, err := w.Write(sampleReport(t), "ts")
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "# total: 2") || !strings.Contains(content, "# valid: 1") {
		t.Fatalf("summary header missing:\n%s", content)
	}
	if !strings.Contains(content, "1.1.1.1:1080") {
		t.Fatal("valid proxy missing from list")
	}
	if strings.Contains(content, "2.2.2.2:9050") {
		t.Fatal("invalid proxy leaked into the list")
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"csv"})

	paths, err := w.Write(sampleReport(t), "ts")
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	file, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2 records", len(rows))
	}
	if rows[0][0] != "host" || rows[0][8] != "reached" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][8] != "intra.example.com/health" {
		t.Fatalf("reached column = %q", rows[1][8])
	}
	if rows[2][5] != "connection_refused" {
		t.Fatalf("failure column = %q", rows[2][5])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	w := NewWriter(t.TempDir(), []string{"xml"})
	if _, err := w.Write(sampleReport(t), "ts"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
