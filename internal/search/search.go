// Package search finds catalog entries by path.
package search

import (
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
)

// Params controls a catalog search.
type Params struct {
	Query         string
	UseRegex      bool
	CaseSensitive bool
	// MinAgeDays keeps only entries at least this old; 0 disables the filter
	// and keeps entries with unreadable timestamps.
	MinAgeDays int
	Limit      int
	Offset     int
}

// Match is one catalog entry that satisfied the query.
type Match struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Date      string `json:"date,omitempty"`
	AgeDays   int    `json:"ageDays,omitempty"`
}

// Service searches catalogs. Ages are computed against a fixed date.
type Service struct {
	normalizer *timestamp.Normalizer
	today      timestamp.Date
}

// New creates a Service.
func New(normalizer *timestamp.Normalizer, today timestamp.Date) *Service {
	if normalizer == nil {
		normalizer = timestamp.New(timestamp.FormatArtifactory)
	}
	return &Service{normalizer: normalizer, today: today}
}

// Search returns matches in path order and the total number of matches
// before pagination.
func (s *Service) Search(cat catalog.Catalog, params Params) ([]Match, int, error) {
	pattern, err := compile(params)
	if err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(params.Offset, 0)

	keys := cat.Keys()
	found := make([]*Match, len(keys))

	numWorkers := max(min(runtime.NumCPU(), len(keys)/1024), 1)
	chunk := (len(keys) + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := range numWorkers {
		lo := w * chunk
		hi := min(lo+chunk, len(keys))
		if lo >= hi {
			break
		}
		wg.Go(func() {
			for i := lo; i < hi; i++ {
				found[i] = s.match(keys[i], cat[keys[i]], pattern, params.MinAgeDays)
			}
		})
	}
	wg.Wait()

	var matches []Match
	for _, m := range found {
		if m != nil {
			matches = append(matches, *m)
		}
	}

	total := len(matches)
	if offset >= total {
		return []Match{}, total, nil
	}
	return matches[offset:min(offset+limit, total)], total, nil
}

func (s *Service) match(path, raw string, pattern *regexp.Regexp, minAge int) *Match {
	if !pattern.MatchString(path) {
		return nil
	}
	m := &Match{Path: path, Timestamp: raw}
	date, err := s.normalizer.Normalize(raw)
	if err != nil {
		if minAge > 0 {
			return nil
		}
		return m
	}
	m.Date = date.String()
	m.AgeDays = s.today.DaysSince(date)
	if m.AgeDays < minAge {
		return nil
	}
	return m
}

func compile(params Params) (*regexp.Regexp, error) {
	query := params.Query
	if strings.TrimSpace(query) == "" {
		return nil, &SearchError{Message: "Search query cannot be empty"}
	}

	if !params.UseRegex {
		query = regexp.QuoteMeta(query)
	}
	if !params.CaseSensitive {
		query = "(?i)" + query
	}

	pattern, err := regexp.Compile(query)
	if err != nil {
		return nil, &SearchError{Message: "Invalid regex pattern: " + err.Error()}
	}
	return pattern, nil
}

// SearchError represents a search error.
type SearchError struct {
	Message string
}

func (e *SearchError) Error() string {
	return e.Message
}
