// Package filter decides which jobs an alert or a user's search history
// matches. All matching is case-insensitive substring matching.
package filter

import (
	"strings"

	"github.com/amishk599/jobboard/internal/model"
)

// AlertMatches reports whether the job's title contains the alert keyword and
// the job's location contains the alert location.
func AlertMatches(alert model.Alert, job model.JobPosting) bool {
	return contains(job.Title, alert.Keyword) && contains(job.Location, alert.Location)
}

// TermFilter matches jobs against a user's recent search terms.
type TermFilter struct {
	terms []string
}

// NewTermFilter returns a filter over terms. Blank terms are dropped so they
// never match every job.
func NewTermFilter(terms []string) *TermFilter {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, strings.ToLower(t))
		}
	}
	return &TermFilter{terms: kept}
}

// Empty reports whether the filter has no usable terms.
func (f *TermFilter) Empty() bool {
	return len(f.terms) == 0
}

// Match returns true if any term appears in the job's title or description.
// An empty filter matches nothing.
func (f *TermFilter) Match(job model.JobPosting) bool {
	if len(f.terms) == 0 {
		return false
	}
	titleLower := strings.ToLower(job.Title)
	descLower := strings.ToLower(job.Description)
	for _, term := range f.terms {
		if strings.Contains(titleLower, term) || strings.Contains(descLower, term) {
			return true
		}
	}
	return false
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
