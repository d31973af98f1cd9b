package report

import (
	"time"

	"github.com/nao1215/gatewayscan/internal/model"
)

// timeRounding is the precision used when printing durations.
const timeRounding = time.Millisecond

// Summary accumulates the results of one run.
// It is not safe for concurrent use; the scheduler adds results from its
// single scan loop.
type Summary struct {
	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is set by Finish.
	FinishedAt time.Time

	// Results holds every result in scan order.
	Results []*model.ScanResult

	counts map[model.Status]int
}

// NewSummary creates an empty summary starting now.
func NewSummary() *Summary {
	return &Summary{
		StartedAt: time.Now(),
		counts:    make(map[model.Status]int),
	}
}

// Add records one result.
func (s *Summary) Add(result *model.ScanResult) {
	s.Results = append(s.Results, result)
	s.counts[result.Status]++
}

// Write records the result so a Summary can be used as a Writer.
func (s *Summary) Write(result *model.ScanResult) (int, error) {
	s.Add(result)
	return 0, nil
}

// Finish marks the end of the run.
func (s *Summary) Finish() {
	s.FinishedAt = time.Now()
}

// Total returns the number of results.
func (s *Summary) Total() int {
	return len(s.Results)
}

// Count returns the number of results with the given status.
func (s *Summary) Count(status model.Status) int {
	return s.counts[status]
}

// Found returns the FOUND results in scan order.
func (s *Summary) Found() []*model.ScanResult {
	var found []*model.ScanResult
	for _, r := range s.Results {
		if r.IsFound() {
			found = append(found, r)
		}
	}
	return found
}

// Elapsed returns the run duration, or the time since start if unfinished.
func (s *Summary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
