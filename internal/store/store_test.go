package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s, err := wrap(sqlDB)
	if err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func sampleRun(name string, created time.Time) *Run {
	day := created.Truncate(24 * time.Hour)
	return &Run{
		CreatedAt:     created,
		SourceName:    name,
		SourceFormat:  "fit",
		ActivityDate:  &day,
		Sport:         "bike",
		Mode:          "best",
		FTP:           250,
		ThresholdHR:   165,
		WindowMinutes: 20,
		SampleCount:   3600,
		DurationH:     1,
		TSS:           floatPtr(64),
		FSS:           floatPtr(58.2),
		AvgPower:      floatPtr(200),
		HRCoverage:    0.97,
		WindowStartS:  floatPtr(600),
		WindowEndS:    floatPtr(1800),
		WindowScore:   floatPtr(210),
		Efficiency:    floatPtr(0.93),
		DriftPct:      floatPtr(-1.5),
		VT2PowerW:     floatPtr(262),
		VT2Confidence: floatPtr(0.81),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := setupTestDB(t)
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("SaveRun assigns an ID", func(t *testing.T) {
		r := sampleRun("morning", created)
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		if r.ID == "" {
			t.Fatal("SaveRun() left ID empty")
		}

		got, err := s.GetRun(r.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.SourceName != "morning" || got.Sport != "bike" {
			t.Errorf("got %s/%s, want morning/bike", got.SourceName, got.Sport)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
		}
		if got.ActivityDate == nil || !got.ActivityDate.Equal(*r.ActivityDate) {
			t.Errorf("ActivityDate = %v, want %v", got.ActivityDate, r.ActivityDate)
		}
		if got.TSS == nil || *got.TSS != 64 {
			t.Errorf("TSS = %v, want 64", got.TSS)
		}
		if got.DriftPct == nil || *got.DriftPct != -1.5 {
			t.Errorf("DriftPct = %v, want -1.5", got.DriftPct)
		}
	})

	t.Run("nullable fields round trip as nil", func(t *testing.T) {
		r := sampleRun("no-hr", created)
		r.ActivityDate = nil
		r.FSS = nil
		r.WindowStartS = nil
		r.WindowEndS = nil
		r.WindowFailure = strPtr("no_hr_global")
		r.VT2Fallback = true

		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		got, err := s.GetRun(r.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.ActivityDate != nil || got.FSS != nil || got.WindowStartS != nil {
			t.Errorf("expected nil fields, got %+v", got)
		}
		if got.WindowFailure == nil || *got.WindowFailure != "no_hr_global" {
			t.Errorf("WindowFailure = %v", got.WindowFailure)
		}
		if !got.VT2Fallback {
			t.Error("VT2Fallback = false, want true")
		}
	})

	t.Run("runs are append-only", func(t *testing.T) {
		r := sampleRun("dup", created)
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		again := sampleRun("dup again", created)
		again.ID = r.ID
		if err := s.SaveRun(again); err == nil {
			t.Error("saving an existing ID should fail")
		}

		got, err := s.GetRun(r.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.SourceName != "dup" {
			t.Errorf("stored run was overwritten: %s", got.SourceName)
		}
	})

	t.Run("GetRun unknown ID", func(t *testing.T) {
		_, err := s.GetRun("does-not-exist")
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
		}
	})
}

func TestListRuns(t *testing.T) {
	s := setupTestDB(t)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// sub-second offsets check created_at ordering
	for i := 0; i < 5; i++ {
		r := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*1500*time.Millisecond))
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := s.ListRuns(0, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 5 {
		t.Fatalf("ListRuns() returned %d runs, want 5", len(runs))
	}
	for i, r := range runs {
		want := fmt.Sprintf("run-%d", 4-i)
		if r.SourceName != want {
			t.Errorf("runs[%d] = %s, want %s", i, r.SourceName, want)
		}
	}

	page, err := s.ListRuns(2, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(page) != 2 || page[0].SourceName != "run-2" || page[1].SourceName != "run-1" {
		t.Errorf("ListRuns(2, 2) = %v", page)
	}

	n, err := s.CountRuns()
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("CountRuns() = %d, want 5", n)
	}
}

func TestGetDailyLoads(t *testing.T) {
	s := setupTestDB(t)

	day1 := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)

	runs := []*Run{
		sampleRun("a", day1),
		sampleRun("b", day1.Add(6*time.Hour)),
		sampleRun("c", day2),
		sampleRun("no load", day2),
	}
	runs[1].TSS = floatPtr(30)
	runs[3].TSS = nil

	for _, r := range runs {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	loads, err := s.GetDailyLoads()
	if err != nil {
		t.Fatalf("GetDailyLoads() error = %v", err)
	}
	want := []DailyLoad{
		{Date: "2025-03-01", TSS: 94, Runs: 2},
		{Date: "2025-03-03", TSS: 64, Runs: 1},
	}
	if len(loads) != len(want) {
		t.Fatalf("GetDailyLoads() = %v, want %v", loads, want)
	}
	for i := range want {
		if loads[i] != want[i] {
			t.Errorf("loads[%d] = %+v, want %+v", i, loads[i], want[i])
		}
	}
}

func TestSaveRunConcurrent(t *testing.T) {
	s := setupTestDB(t)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SaveRun(sampleRun(fmt.Sprintf("parallel-%d", i), created))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("SaveRun() error = %v", err)
		}
	}
	if n, _ := s.CountRuns(); n != 20 {
		t.Errorf("CountRuns() = %d, want 20", n)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/history.db"

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.SaveRun(sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
}
