package domain

import (
	"fmt"
	"sort"
	"strings"
)

// DataLoadError reports the required feed sources that could not be loaded.
// Optional source failures never produce this error; they degrade to empty
// lists on the dataset instead.
type DataLoadError struct {
	Failures map[string]error // source name -> underlying failure
}

// NewDataLoadError builds a DataLoadError from per-source failures.
func NewDataLoadError(failures map[string]error) *DataLoadError {
	return &DataLoadError{Failures: failures}
}

// Sources returns the failed source names in stable order.
func (e *DataLoadError) Sources() []string {
	sources := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

func (e *DataLoadError) Error() string {
	sources := e.Sources()
	parts := make([]string, 0, len(sources))
	for _, name := range sources {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Failures[name]))
	}
	return fmt.Sprintf("failed to load required sources [%s]: %s",
		strings.Join(sources, ", "), strings.Join(parts, "; "))
}
