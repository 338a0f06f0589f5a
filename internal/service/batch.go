package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"trainload/internal/analysis"
)

// BatchProgress reports progress during a batch analysis
type BatchProgress struct {
	Total     int
	Completed int
	Path      string // file that just finished
	Error     error
}

// FileError records a file that could not be analyzed
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// BatchResult contains the results of a batch analysis
type BatchResult struct {
	Files  []*FileResult // input order, nil where the file failed
	Errors []FileError   // input order
}

// Succeeded returns the number of files analyzed
func (r *BatchResult) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f != nil {
			n++
		}
	}
	return n
}

// AnalyzeBatch analyzes paths with at most workers files in flight. A file
// that fails is recorded on the result and never stops the others. The
// returned error is non-nil only when ctx ends before the batch finishes.
// progress, if non-nil, receives one update per file with Completed counting
// up from 1, and is closed on return.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, paths []string, params analysis.Params, workers int, progress chan<- BatchProgress) (*BatchResult, error) {
	if progress != nil {
		defer close(progress)
	}
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	result := &BatchResult{Files: make([]*FileResult, len(paths))}
	errs := make([]error, len(paths))

	var mu sync.Mutex
	completed := 0

	eg := new(errgroup.Group)
	eg.SetLimit(workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			fr, err := s.AnalyzeFile(ctx, path, params)
			result.Files[i] = fr
			errs[i] = err

			if err != nil && !isCancel(err) {
				s.log.WithField("file", path).WithError(err).Warn("skipping activity")
			}

			// send under the lock so Completed arrives in order
			mu.Lock()
			defer mu.Unlock()
			completed++
			if progress != nil {
				progress <- BatchProgress{Total: len(paths), Completed: completed, Path: path, Error: err}
			}
			return nil
		})
	}
	_ = eg.Wait()

	for i, err := range errs {
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: paths[i], Err: err})
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
