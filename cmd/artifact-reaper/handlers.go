package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/classify"
	"github.com/taigrr/artifact-reaper/internal/search"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
)

// reaper is the app the MCP handlers work with.
var reaper *app

func runServer(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	reaper = a

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "artifact-reaper",
		Version: version,
	}, nil)

	registerTools(server)

	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}

	return nil
}

func handleClassify(ctx context.Context, req *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	cfg := reaper.cfg

	threshold := cfg.MaxDays
	if input.ThresholdDays != nil {
		threshold = *input.ThresholdDays
	}
	today := reaper.today
	if input.Today != "" {
		t, err := time.Parse(time.DateOnly, input.Today)
		if err != nil {
			return &mcp.CallToolResult{IsError: true}, ClassifyOutput{}, fmt.Errorf("today must be YYYY-MM-DD: %w", err)
		}
		today = timestamp.DateOf(t)
	}

	devRepo := firstNonEmpty(input.DevRepo, cfg.DevRepo)
	relRepo := firstNonEmpty(input.ReleaseRepo, cfg.ReleaseRepo)
	var mapper classify.PathMapper
	if relRepo != "" {
		mapper = classify.RootMapper(devRepo, relRepo)
	}

	match, err := classify.ParseMatchMode(firstNonEmpty(input.Match, string(cfg.Match())))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ClassifyOutput{}, err
	}
	normalizer := reaper.normalizer
	if input.Format != "" {
		format, err := timestamp.ParseFormat(input.Format)
		if err != nil {
			return &mcp.CallToolResult{IsError: true}, ClassifyOutput{}, err
		}
		normalizer = timestamp.New(format)
	}

	c, err := classify.New(classify.Config{
		Threshold:  threshold,
		Today:      today,
		Normalizer: normalizer,
		Mapper:     mapper,
		Match:      match,
	}, reaper.logger, reaper.metrics)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ClassifyOutput{}, err
	}

	res := c.Classify(catalog.Catalog(input.Dev), catalog.Catalog(input.Release))
	return nil, ClassifyOutput{
		Keep:   nonNil(res.Keep),
		Delete: nonNil(res.Delete),
		Skip:   nonNil(res.Skip),
	}, nil
}

func catalogName(input string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "dev", "development":
		return devCatalog, nil
	case "release", "rel":
		return releaseCatalog, nil
	default:
		return "", fmt.Errorf("unknown catalog %q: use dev or release", input)
	}
}

func handleCatalog(ctx context.Context, req *mcp.CallToolRequest, input CatalogInput) (*mcp.CallToolResult, CatalogOutput, error) {
	name, err := catalogName(input.Name)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, CatalogOutput{}, err
	}

	cat, err := reaper.store.Load(ctx, name)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, CatalogOutput{Name: name}, err
	}

	keys := cat.Keys()
	total := len(keys)
	offset := max(input.Offset, 0)
	if offset >= total {
		return nil, CatalogOutput{Name: name, Total: total, Entries: []CatalogEntry{}, Truncated: total > 0}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = total
	}
	end := min(offset+limit, total)

	entries := make([]CatalogEntry, 0, end-offset)
	for _, k := range keys[offset:end] {
		entries = append(entries, CatalogEntry{Path: k, Timestamp: cat[k]})
	}

	return nil, CatalogOutput{
		Name:      name,
		Total:     total,
		Entries:   entries,
		Truncated: end < total,
	}, nil
}

func handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	name, err := catalogName(firstNonEmpty(input.Name, "dev"))
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{}, err
	}

	cat, err := reaper.store.Load(ctx, name)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{Name: name}, err
	}

	svc := search.New(reaper.normalizer, reaper.today)
	matches, total, err := svc.Search(cat, search.Params{
		Query:         input.Query,
		UseRegex:      input.UseRegex,
		CaseSensitive: input.CaseSensitive,
		MinAgeDays:    input.MinAgeDays,
		Limit:         input.Limit,
		Offset:        input.Offset,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{Name: name}, err
	}

	return nil, SearchOutput{Name: name, Total: total, Matches: nonNil(matches)}, nil
}

func handleNormalize(ctx context.Context, req *mcp.CallToolRequest, input NormalizeInput) (*mcp.CallToolResult, NormalizeOutput, error) {
	normalizer := reaper.normalizer
	if input.Format != "" {
		format, err := timestamp.ParseFormat(input.Format)
		if err != nil {
			return &mcp.CallToolResult{IsError: true}, NormalizeOutput{}, err
		}
		normalizer = timestamp.New(format)
	}

	date, err := normalizer.Normalize(input.Timestamp)
	if err != nil {
		return nil, NormalizeOutput{Valid: false, Error: err.Error()}, nil
	}
	return nil, NormalizeOutput{Date: date.String(), Valid: true}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
