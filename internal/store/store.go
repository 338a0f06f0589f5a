package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store provides the application's data access layer over the history
// database. Writes are serialized; reads go straight to the pool.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// newStore creates a Store from a database connection.
func newStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createdLayout is fixed width so created_at sorts lexically
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, created_at, source_name, source_format, activity_date, sport, mode,
	ftp_w, hr_threshold_bpm, window_minutes, sample_count, duration_h,
	tss, fss, avg_power, avg_heartrate, avg_efficiency, avg_composite, hr_coverage,
	window_start_s, window_end_s, window_score, window_failure,
	efficiency, drift_pct, decoupling_failure,
	vt2_power_w, vt2_heartrate, vt2_confidence, vt2_fallback, threshold_failure,
	export_path`

// SaveRun appends a run to the history. Runs are never updated; saving a
// run whose ID already exists is an error. An empty ID is filled with a new
// UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	var activityDate *string
	if r.ActivityDate != nil {
		d := r.ActivityDate.UTC().Format(time.RFC3339)
		activityDate = &d
	}

	_, err := s.db.Exec(`INSERT INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(createdLayout), r.SourceName, r.SourceFormat, activityDate,
		r.Sport, r.Mode,
		r.FTP, r.ThresholdHR, r.WindowMinutes, r.SampleCount, r.DurationH,
		r.TSS, r.FSS, r.AvgPower, r.AvgHeartrate, r.AvgEfficiency, r.AvgComposite, r.HRCoverage,
		r.WindowStartS, r.WindowEndS, r.WindowScore, r.WindowFailure,
		r.Efficiency, r.DriftPct, r.DecouplingFailure,
		r.VT2PowerW, r.VT2Heartrate, r.VT2Confidence, r.VT2Fallback, r.ThresholdFailure,
		r.ExportPath,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun retrieves a single run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// ListRuns returns runs newest first. A limit <= 0 returns every run.
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM analysis_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of stored runs
func (s *Store) CountRuns() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM analysis_runs`).Scan(&n)
	return n, err
}

// GetDailyLoads sums TSS per activity day, oldest first. Runs without an
// activity date count on the day they were analyzed; runs without a TSS
// are skipped.
func (s *Store) GetDailyLoads() ([]DailyLoad, error) {
	rows, err := s.db.Query(`
		SELECT substr(COALESCE(activity_date, created_at), 1, 10) AS day,
			SUM(tss), COUNT(*)
		FROM analysis_runs
		WHERE tss IS NOT NULL
		GROUP BY day
		ORDER BY day
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []DailyLoad
	for rows.Next() {
		var d DailyLoad
		if err := rows.Scan(&d.Date, &d.TSS, &d.Runs); err != nil {
			return nil, err
		}
		loads = append(loads, d)
	}
	return loads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var createdAt string
	var activityDate *string

	err := row.Scan(
		&r.ID, &createdAt, &r.SourceName, &r.SourceFormat, &activityDate, &r.Sport, &r.Mode,
		&r.FTP, &r.ThresholdHR, &r.WindowMinutes, &r.SampleCount, &r.DurationH,
		&r.TSS, &r.FSS, &r.AvgPower, &r.AvgHeartrate, &r.AvgEfficiency, &r.AvgComposite, &r.HRCoverage,
		&r.WindowStartS, &r.WindowEndS, &r.WindowScore, &r.WindowFailure,
		&r.Efficiency, &r.DriftPct, &r.DecouplingFailure,
		&r.VT2PowerW, &r.VT2Heartrate, &r.VT2Confidence, &r.VT2Fallback, &r.ThresholdFailure,
		&r.ExportPath,
	)
	if err != nil {
		return nil, err
	}

	var parseErr error
	r.CreatedAt, parseErr = time.Parse(createdLayout, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, parseErr)
	}
	if activityDate != nil {
		d, err := time.Parse(time.RFC3339, *activityDate)
		if err != nil {
			return nil, fmt.Errorf("parsing activity_date %q: %w", *activityDate, err)
		}
		r.ActivityDate = &d
	}

	return &r, nil
}
