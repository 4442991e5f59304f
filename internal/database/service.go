package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"socksweep/internal/database/models/model"
	"socksweep/internal/database/models/table"
	"socksweep/pkg/scan"

	. "github.com/go-jet/jet/v2/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrNoScans is returned when a recheck is requested but no scan history exists.
var ErrNoScans = errors.New("no scans recorded")

// Service handles database operations for scan history
type Service struct {
	db *DB
}

// NewService creates a new database service
func NewService(db *DB) *Service {
	return &Service{db: db}
}

// CreateScan records the start of a scan and returns its id.
func (s *Service) CreateScan(ctx context.Context, mode string, startedAt time.Time) (int32, error) {
	stmt := table.Scans.INSERT(
		table.Scans.Mode,
		table.Scans.StartedAt,
	).VALUES(
		mode,
		String(startedAt.Format(timeLayout)),
	).RETURNING(table.Scans.AllColumns)

	var result model.Scans
	if err := stmt.QueryContext(ctx, s.db, &result); err != nil {
		return 0, fmt.Errorf("failed to create scan: %w", err)
	}

	return result.ID, nil
}

// SaveReport persists every record of a finished scan and closes out the
// scan row with its summary counts, all in one transaction.
func (s *Service) SaveReport(ctx context.Context, scanID int32, report *scan.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO scan_results (scan_id, host, port, source, valid, latency_ms, failure, province, carrier, reached_targets, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	insertStmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer insertStmt.Close()

	for i := range report.Records {
		rec := &report.Records[i]

		var reached *string
		if ids := reachedTargetIDs(rec); len(ids) > 0 {
			data, err := json.Marshal(ids)
			if err != nil {
				return fmt.Errorf("failed to serialize reached targets: %w", err)
			}
			str := string(data)
			reached = &str
		}

		_, err := insertStmt.ExecContext(ctx,
			scanID, rec.Host, rec.Port, nullable(rec.Source), rec.Valid,
			rec.Latency.Milliseconds(), nullable(rec.FailureString()),
			nullable(rec.Province), nullable(rec.Carrier), reached,
			rec.TestedAt.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", rec.Address(), err)
		}
	}

	updateQuery := `
		UPDATE scans
		SET finished_at = ?, total_scanned = ?, total_valid = ?, total_working = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, updateQuery,
		time.Now().Format(timeLayout),
		report.Summary.TotalScanned, report.Summary.TotalValid, report.Summary.TotalWorking,
		scanID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize scan: %w", err)
	}

	return tx.Commit()
}

// LatestScanID returns the id of the most recent scan.
func (s *Service) LatestScanID(ctx context.Context) (int32, error) {
	var id int32
	err := s.db.QueryRowContext(ctx, `SELECT id FROM scans ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoScans
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest scan: %w", err)
	}
	return id, nil
}

// LoadInvalidCandidates returns the invalid records of a scan as a fresh
// candidate list, so the caller can resubmit them through the pool. scanID 0
// means the most recent scan.
func (s *Service) LoadInvalidCandidates(ctx context.Context, scanID int32) ([]scan.Candidate, error) {
	if scanID == 0 {
		latest, err := s.LatestScanID(ctx)
		if err != nil {
			return nil, err
		}
		scanID = latest
	}

	query := `
		SELECT host, port, source
		FROM scan_results
		WHERE scan_id = ? AND valid = 0
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invalid candidates: %w", err)
	}
	defer rows.Close()

	var candidates []scan.Candidate
	for rows.Next() {
		var (
			cand   scan.Candidate
			source sql.NullString
		)
		if err := rows.Scan(&cand.Host, &cand.Port, &source); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		cand.Source = source.String
		candidates = append(candidates, cand)
	}

	return candidates, rows.Err()
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func reachedTargetIDs(rec *scan.Record) []string {
	var ids []string
	for _, id := range sortedKeys(rec.Reachability) {
		if rec.Reachability[id].Reached {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedKeys(results map[string]scan.TargetResult) []string {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	// Stable serialization regardless of map order.
	sort.Strings(keys)
	return keys
}
