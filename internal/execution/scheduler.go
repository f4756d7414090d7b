package execution

import "testme/internal/domain"

// Scheduler splits tests into the batches a worker pool runs
type Scheduler interface {
	Schedule(tests []domain.TestFile, workerCount int) [][]domain.TestFile
}

// BatchScheduler cuts tests into consecutive batches of workerCount, so each
// batch finishes before the next one starts.
type BatchScheduler struct{}

// NewBatchScheduler creates a new BatchScheduler
func NewBatchScheduler() *BatchScheduler {
	return &BatchScheduler{}
}

// Schedule keeps discovery order within and across batches
func (s *BatchScheduler) Schedule(tests []domain.TestFile, workerCount int) [][]domain.TestFile {
	if workerCount <= 0 {
		workerCount = 1
	}

	batches := make([][]domain.TestFile, 0, (len(tests)+workerCount-1)/workerCount)
	for start := 0; start < len(tests); start += workerCount {
		end := min(start+workerCount, len(tests))
		batches = append(batches, tests[start:end])
	}
	return batches
}
