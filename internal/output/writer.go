// Package output serializes a scan report to the configured file formats.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"socksweep/internal/logger"
	"socksweep/pkg/scan"
)

// Writer writes reports into a results directory, one file per format,
// named with the scan timestamp.
type Writer struct {
	dir     string
	formats []string
	log     *logger.Logger
}

func NewWriter(dir string, formats []string) *Writer {
	return &Writer{
		dir:     dir,
		formats: formats,
		log:     logger.New("output"),
	}
}

// Write serializes the report in every configured format and returns the
// paths written.
func (w *Writer) Write(report *scan.Report, timestamp string) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, format := range w.formats {
		var (
			path string
			err  error
		)
		switch format {
		case "json":
			path = filepath.Join(w.dir, fmt.Sprintf("results_%s.json", timestamp))
			err = w.writeJSON(report, path)
		case "csv":
			path = filepath.Join(w.dir, fmt.Sprintf("results_%s.csv", timestamp))
			err = w.writeCSV(report, path)
		case "txt":
			path = filepath.Join(w.dir, fmt.Sprintf("proxies_%s.txt", timestamp))
			err = w.writeTXT(report, path)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return paths, err
		}
		w.log.Info("report written", "format", format, "path", path)
		paths = append(paths, path)
	}

	return paths, nil
}

func (w *Writer) writeJSON(report *scan.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// writeTXT emits the classic plain list: summary header comments followed by
// the valid proxies, one per line.
func (w *Writer) writeTXT(report *scan.Report, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "# total: %d\n", report.Summary.TotalScanned)
	fmt.Fprintf(&b, "# valid: %d\n", report.Summary.TotalValid)
	fmt.Fprintf(&b, "# working: %d\n\n", report.Summary.TotalWorking)

	for _, addr := range report.Views.Validity[scan.KeyValid] {
		b.WriteString(addr)
		b.WriteString("\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func (w *Writer) writeCSV(report *scan.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	header := []string{"host", "port", "source", "valid", "latency_ms", "failure", "province", "carrier", "reached"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range report.Records {
		rec := &report.Records[i]
		row := []string{
			rec.Host,
			strconv.Itoa(rec.Port),
			rec.Source,
			strconv.FormatBool(rec.Valid),
			strconv.FormatInt(rec.Latency.Milliseconds(), 10),
			rec.FailureString(),
			rec.Province,
			rec.Carrier,
			strings.Join(reachedIDs(rec), " "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func reachedIDs(rec *scan.Record) []string {
	var ids []string
	for _, id := range sortedIDs(rec.Reachability) {
		if rec.Reachability[id].Reached {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedIDs(results map[string]scan.TargetResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
