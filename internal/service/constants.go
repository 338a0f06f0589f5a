package service

const (
	// Batch analysis
	DefaultBatchWorkers = 4

	// Pagination limits
	DefaultHistoryLimit = 50

	// Fitness trend shown with the history, in days
	TrendDays = 90

	// Export file suffixes
	SummarySuffix = "_summary.json"
)
