package parser

import "testme/internal/domain"

// Parser extracts assertion counts and failures from test output
type Parser interface {
	ParseTestCounts(result domain.TestResult) (passed, failed int)
	ParseFailure(result domain.TestResult) []domain.TestFailure
}
