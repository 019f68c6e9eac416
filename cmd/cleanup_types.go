package cmd

import "github.com/stuttgart-things/snyk-cleanup/internal/snyk"

// DeleteResult holds the result of deleting a single target
type DeleteResult struct {
	Target snyk.Target
	Error  error
}

// DeleteResults is the outcome of one deletion pass
type DeleteResults struct {
	Results []DeleteResult

	// Interrupted is set when the run was cancelled before every target was attempted
	Interrupted bool
}

// SuccessCount returns the number of deleted targets
func (r *DeleteResults) SuccessCount() int {
	count := 0
	for _, result := range r.Results {
		if result.Error == nil {
			count++
		}
	}
	return count
}

// FailedCount returns the number of failed deletions
func (r *DeleteResults) FailedCount() int {
	return len(r.Results) - r.SuccessCount()
}
