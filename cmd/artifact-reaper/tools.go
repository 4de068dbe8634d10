package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taigrr/artifact-reaper/internal/search"
	"github.com/taigrr/artifact-reaper/internal/types"
)

type (
	// ClassifyInput contains the catalogs to classify.
	ClassifyInput struct {
		Dev           map[string]string `json:"dev" jsonschema:"Development catalog: path to timestamp"`
		Release       map[string]string `json:"release,omitempty" jsonschema:"Release catalog: path to timestamp"`
		ThresholdDays *int              `json:"thresholdDays,omitempty" jsonschema:"Maximum age in days (default: configured max_days)"`
		Today         string            `json:"today,omitempty" jsonschema:"Reference date YYYY-MM-DD (default: today in UTC)"`
		DevRepo       string            `json:"devRepo,omitempty" jsonschema:"Development repository name (default: configured dev_repo)"`
		ReleaseRepo   string            `json:"releaseRepo,omitempty" jsonschema:"Release repository name (default: configured release_repo)"`
		Match         string            `json:"match,omitempty" jsonschema:"Release match mode: exact or substring"`
		Format        string            `json:"format,omitempty" jsonschema:"Timestamp format: artifactory or os"`
	}

	// ClassifyOutput contains the three partitions.
	ClassifyOutput struct {
		Keep   []types.Record `json:"keep"`
		Delete []types.Record `json:"delete"`
		Skip   []types.Record `json:"skip"`
	}

	// CatalogInput selects a saved catalog.
	CatalogInput struct {
		Name   string `json:"name" jsonschema:"Catalog to read: dev or release"`
		Offset int    `json:"offset,omitempty" jsonschema:"Entry offset to start from (default: 0)"`
		Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of entries to return (default: all)"`
	}

	// CatalogEntry is one catalog line.
	CatalogEntry struct {
		Path      string `json:"path"`
		Timestamp string `json:"timestamp"`
	}

	// CatalogOutput contains a page of a saved catalog.
	CatalogOutput struct {
		Name      string         `json:"name"`
		Total     int            `json:"total"`
		Entries   []CatalogEntry `json:"entries"`
		Truncated bool           `json:"truncated,omitempty"`
	}

	// SearchInput contains the search parameters.
	SearchInput struct {
		Name          string `json:"name,omitempty" jsonschema:"Catalog to search: dev or release (default: dev)"`
		Query         string `json:"query" jsonschema:"Text or pattern to find in artifact paths"`
		UseRegex      bool   `json:"useRegex,omitempty" jsonschema:"Treat query as a regular expression"`
		CaseSensitive bool   `json:"caseSensitive,omitempty" jsonschema:"Match case (default: false)"`
		MinAgeDays    int    `json:"minAgeDays,omitempty" jsonschema:"Only return artifacts at least this many days old"`
		Offset        int    `json:"offset,omitempty" jsonschema:"Result offset (default: 0)"`
		Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default: 50)"`
	}

	// SearchOutput contains matching catalog entries.
	SearchOutput struct {
		Name    string         `json:"name"`
		Total   int            `json:"total"`
		Matches []search.Match `json:"matches"`
	}

	// NormalizeInput contains a raw timestamp.
	NormalizeInput struct {
		Timestamp string `json:"timestamp" jsonschema:"Timestamp as reported by the repository"`
		Format    string `json:"format,omitempty" jsonschema:"Timestamp format: artifactory or os"`
	}

	// NormalizeOutput contains the calendar date of a timestamp.
	NormalizeOutput struct {
		Date  string `json:"date,omitempty"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}
)

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify",
		Description: "Classify a development catalog against a release catalog. Every development path is returned in exactly one of keep, delete or skip.",
	}, handleClassify)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog",
		Description: "Read a saved catalog (dev or release) from the catalog store. Supports pagination with offset/limit.",
	}, handleCatalog)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search artifact paths in a saved catalog. Supports literal or regex queries, a minimum age filter and pagination.",
	}, handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "normalize",
		Description: "Convert a repository timestamp to its calendar date. The UTC offset is discarded, not applied.",
	}, handleNormalize)
}
