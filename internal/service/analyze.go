package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"trainload/internal/analysis"
	"trainload/internal/export"
	"trainload/internal/importer"
	"trainload/internal/store"
)

// Options controls what happens to an analysis besides computing it
type Options struct {
	ExportDir    string // empty disables export
	ExportFormat string // "parquet" or "csv"
	Save         bool   // append a run to the history store
}

// AnalysisService imports activity files, analyzes them, and exports or
// persists the results
type AnalysisService struct {
	store *store.Store // nil when history is disabled
	cfg   analysis.Config
	opts  Options
	log   *logrus.Logger
}

// NewAnalysisService creates a new analysis service. st may be nil when
// opts.Save is false.
func NewAnalysisService(st *store.Store, cfg analysis.Config, opts Options, logger *logrus.Logger) *AnalysisService {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = "parquet"
	}
	return &AnalysisService{store: st, cfg: cfg, opts: opts, log: logger}
}

// FileResult is the outcome of analyzing one file
type FileResult struct {
	Path        string
	Meta        importer.Meta
	Analysis    *analysis.ActivityAnalysis
	RunID       string   // empty when not saved
	ExportPaths []string // sample export, then summary
}

// AnalyzeFile runs the full pipeline on one activity file
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string, params analysis.Params) (*FileResult, error) {
	entry := s.log.WithField("file", filepath.Base(path))

	samples, meta, err := importer.Load(path)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	entry.WithFields(logrus.Fields{
		"samples": len(samples),
		"format":  meta.Format,
	}).Debug("imported activity")

	// the file's own sport tag beats guessing from the signals
	if params.Sport == analysis.SportAuto && meta.SportHint != analysis.SportAuto {
		params.Sport = meta.SportHint
	}

	a, err := analysis.Analyze(ctx, samples, params, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}
	logOutcome(entry, a)

	result := &FileResult{Path: path, Meta: meta, Analysis: a}

	if s.opts.ExportDir != "" {
		paths, err := s.export(meta, a)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", path, err)
		}
		result.ExportPaths = paths
		entry.WithField("paths", paths).Debug("exported")
	}

	if s.opts.Save && s.store != nil {
		var exportPath string
		if len(result.ExportPaths) > 0 {
			exportPath = result.ExportPaths[0]
		}
		run := runFromAnalysis(meta, a, exportPath)
		if err := s.store.SaveRun(run); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		result.RunID = run.ID
		entry.WithField("run_id", run.ID).Debug("saved run")
	}

	return result, nil
}

func logOutcome(entry *logrus.Entry, a *analysis.ActivityAnalysis) {
	fields := logrus.Fields{
		"sport": a.Sport,
		"tss":   a.Metrics.Totals.TSS,
		"fss":   a.Metrics.Totals.FSS,
	}
	if a.WindowFailure != nil {
		fields["window"] = a.WindowFailure
	}
	if a.DecouplingFailure != nil {
		fields["decoupling"] = a.DecouplingFailure
	}
	if a.ThresholdErr != nil {
		fields["threshold"] = a.ThresholdErr
	}
	entry.WithFields(fields).Info("analyzed activity")
}

func (s *AnalysisService) export(meta importer.Meta, a *analysis.ActivityAnalysis) ([]string, error) {
	if err := os.MkdirAll(s.opts.ExportDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	var write func(io.Writer, *analysis.MetricSeries, *analysis.Window) error
	switch s.opts.ExportFormat {
	case "parquet":
		write = export.WriteParquet
	case "csv":
		write = export.WriteCSV
	default:
		return nil, fmt.Errorf("unsupported export format %q (expected parquet|csv)", s.opts.ExportFormat)
	}

	samplesPath := filepath.Join(s.opts.ExportDir, meta.BaseName+"."+s.opts.ExportFormat)
	if err := writeFile(samplesPath, func(w io.Writer) error {
		return write(w, a.Metrics, a.Window)
	}); err != nil {
		return nil, err
	}

	summaryPath := filepath.Join(s.opts.ExportDir, meta.BaseName+SummarySuffix)
	summary := export.NewSummary(meta.BaseName, meta.Date, a)
	if err := writeFile(summaryPath, func(w io.Writer) error {
		return export.WriteSummaryJSON(w, summary)
	}); err != nil {
		return nil, err
	}

	return []string{samplesPath, summaryPath}, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// isCancel reports whether err came from a cancelled or expired context
func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
