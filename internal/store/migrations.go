package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Analysis runs (append-only, one row per analyzed activity)
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			source_name TEXT NOT NULL,
			source_format TEXT NOT NULL,
			activity_date TEXT,
			sport TEXT NOT NULL,
			mode TEXT NOT NULL,
			ftp_w REAL NOT NULL,
			hr_threshold_bpm REAL NOT NULL,
			window_minutes REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			duration_h REAL NOT NULL,
			tss REAL,
			fss REAL,
			avg_power REAL,
			avg_heartrate REAL,
			avg_efficiency REAL,
			avg_composite REAL,
			hr_coverage REAL NOT NULL,
			window_start_s REAL,
			window_end_s REAL,
			window_score REAL,
			window_failure TEXT,
			efficiency REAL,
			drift_pct REAL,
			decoupling_failure TEXT,
			vt2_power_w REAL,
			vt2_heartrate REAL,
			vt2_confidence REAL,
			vt2_fallback INTEGER NOT NULL DEFAULT 0,
			threshold_failure TEXT,
			export_path TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created ON analysis_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_activity_date ON analysis_runs(activity_date)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
