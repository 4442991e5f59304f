package scan

import (
	"errors"
	"fmt"
	"time"
)

// ErrInconsistentReport signals that the classifier output disagrees with the
// record set. It indicates a bug in the pipeline, not a transient condition.
var ErrInconsistentReport = errors.New("classification views inconsistent with records")

// Summary holds the aggregate counts of one scan.
type Summary struct {
	TotalScanned int            `json:"total_scanned"`
	TotalValid   int            `json:"total_valid"`
	TotalWorking int            `json:"total_working"`
	PerSource    map[string]int `json:"per_source,omitempty"`
}

// Report is the final result handed to output writers. It references the
// records and views rather than copying them and is immutable once built.
type Report struct {
	Summary     Summary   `json:"summary"`
	Views       Views     `json:"views"`
	Records     []Record  `json:"records"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildReport composes records and classification views into a Report,
// computing summary counts in a single pass. A mismatch between the counts
// and the validity view sizes is a fatal internal consistency error.
func BuildReport(records []Record, views Views) (*Report, error) {
	summary := Summary{
		TotalScanned: len(records),
		PerSource:    make(map[string]int),
	}

	for i := range records {
		rec := &records[i]
		if rec.Valid {
			summary.TotalValid++
		}
		if reachedAny(rec) {
			summary.TotalWorking++
		}
		if rec.Source != "" {
			summary.PerSource[rec.Source]++
		}
	}

	validLen := len(views.Validity[KeyValid])
	invalidLen := len(views.Validity[KeyInvalid])
	if validLen != summary.TotalValid || validLen+invalidLen != summary.TotalScanned {
		return nil, fmt.Errorf("%w: records total=%d valid=%d, views valid=%d invalid=%d",
			ErrInconsistentReport, summary.TotalScanned, summary.TotalValid, validLen, invalidLen)
	}

	return &Report{
		Summary:     summary,
		Views:       views,
		Records:     records,
		GeneratedAt: time.Now(),
	}, nil
}

func reachedAny(rec *Record) bool {
	for _, result := range rec.Reachability {
		if result.Reached {
			return true
		}
	}
	return false
}
