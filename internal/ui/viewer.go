package ui

import "testme/internal/domain"

// Viewer displays the failures of a saved report
type Viewer interface {
	View(report *domain.Report) error
}
