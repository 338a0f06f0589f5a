package service

import (
	"errors"
	"fmt"
	"time"

	"trainload/internal/analysis"
	"trainload/internal/store"
)

// ErrNoHistory is returned when the service has no history store
var ErrNoHistory = errors.New("history store not configured")

// HistoryPage is one page of stored runs plus the load trend over all runs
type HistoryPage struct {
	Runs   []store.Run
	Total  int
	Offset int

	Fitness         analysis.FitnessMetrics   // latest day
	FormDescription string
	Trend           []analysis.FitnessMetrics // last TrendDays days
}

// History returns stored runs newest first
func (s *AnalysisService) History(limit, offset int) (*HistoryPage, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	runs, err := s.store.ListRuns(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	total, err := s.store.CountRuns()
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	page := &HistoryPage{Runs: runs, Total: total, Offset: offset}

	loads, err := s.dailyLoads()
	if err != nil {
		// Trend is optional - the run list is still useful
		s.log.WithError(err).Warn("loading daily loads")
		return page, nil
	}
	trend := analysis.CalculateFitnessTrend(loads)
	if len(trend) > 0 {
		page.Fitness = trend[len(trend)-1]
		page.FormDescription = analysis.FormDescription(page.Fitness.TSB)
		if len(trend) > TrendDays {
			trend = trend[len(trend)-TrendDays:]
		}
		page.Trend = trend
	}
	return page, nil
}

// GetRun returns one stored run
func (s *AnalysisService) GetRun(id string) (*store.Run, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.GetRun(id)
}

func (s *AnalysisService) dailyLoads() ([]analysis.DailyLoad, error) {
	rows, err := s.store.GetDailyLoads()
	if err != nil {
		return nil, err
	}
	loads := make([]analysis.DailyLoad, 0, len(rows))
	for _, r := range rows {
		day, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing day %q: %w", r.Date, err)
		}
		loads = append(loads, analysis.DailyLoad{Date: day, TSS: r.TSS})
	}
	return loads, nil
}
