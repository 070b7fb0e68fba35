package filter

import (
	"testing"

	"github.com/amishk599/jobboard/internal/model"
)

func job(title, location, description string) model.JobPosting {
	return model.JobPosting{Title: title, Location: location, Description: description}
}

func TestAlertMatches(t *testing.T) {
	tests := []struct {
		name      string
		keyword   string
		location  string
		job       model.JobPosting
		wantMatch bool
	}{
		{
			name:      "keyword in title and location contained",
			keyword:   "Developer",
			location:  "Istanbul",
			job:       job("Python Developer", "Istanbul, Turkey", ""),
			wantMatch: true,
		},
		{
			name:      "case insensitive matching",
			keyword:   "PYTHON",
			location:  "istanbul",
			job:       job("Senior python engineer", "ISTANBUL", ""),
			wantMatch: true,
		},
		{
			name:      "title match but location miss",
			keyword:   "Developer",
			location:  "Ankara",
			job:       job("Python Developer", "Istanbul, Turkey", ""),
			wantMatch: false,
		},
		{
			name:      "location match but title miss",
			keyword:   "Designer",
			location:  "Istanbul",
			job:       job("Python Developer", "Istanbul, Turkey", ""),
			wantMatch: false,
		},
		{
			name:      "keyword only in description does not count",
			keyword:   "Django",
			location:  "Istanbul",
			job:       job("Python Developer", "Istanbul", "Django and Postgres"),
			wantMatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := model.Alert{Keyword: tt.keyword, Location: tt.location}
			if got := AlertMatches(alert, tt.job); got != tt.wantMatch {
				t.Errorf("AlertMatches() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestTermFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		terms     []string
		job       model.JobPosting
		wantMatch bool
	}{
		{
			name:      "term in title",
			terms:     []string{"python"},
			job:       job("Senior Python Engineer", "Remote", "Backend work"),
			wantMatch: true,
		},
		{
			name:      "term in description",
			terms:     []string{"kubernetes"},
			job:       job("Platform Engineer", "Remote", "Operate Kubernetes clusters"),
			wantMatch: true,
		},
		{
			name:      "any term is enough",
			terms:     []string{"rust", "golang", "python"},
			job:       job("Python Developer", "Remote", ""),
			wantMatch: true,
		},
		{
			name:      "no term matches",
			terms:     []string{"java"},
			job:       job("Python Developer", "Remote", "Flask APIs"),
			wantMatch: false,
		},
		{
			name:      "surrounding whitespace is trimmed",
			terms:     []string{" Python "},
			job:       job("Senior Python Engineer", "Remote", ""),
			wantMatch: true,
		},
		{
			name:      "blank terms never match",
			terms:     []string{"", "   "},
			job:       job("Python Developer", "Remote", ""),
			wantMatch: false,
		},
		{
			name:      "no terms match nothing",
			terms:     nil,
			job:       job("Anything", "Anywhere", ""),
			wantMatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTermFilter(tt.terms)
			if got := f.Match(tt.job); got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestTermFilter_Empty(t *testing.T) {
	if !NewTermFilter([]string{" ", ""}).Empty() {
		t.Error("filter of blank terms should be empty")
	}
	if NewTermFilter([]string{"go"}).Empty() {
		t.Error("filter with a term should not be empty")
	}
}
