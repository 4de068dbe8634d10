package search

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		"/npm-dev/app/app-1.0.0.tgz":    "2024-01-01T10:00:00.000-05:00",
		"/npm-dev/app/app-1.1.0.tgz":    "2024-05-01T10:00:00.000-05:00",
		"/npm-dev/lib/Lib-2.0.0.tgz":    "2024-05-30T10:00:00.000Z",
		"/npm-dev/lib/lib-broken.tgz":   "yesterday",
		"/npm-dev/tools/cli-0.1.0.json": "2023-12-01T00:00:00.000Z",
	}
}

func newService() *Service {
	today := timestamp.DateOf(mustDate("2024-06-01"))
	return New(timestamp.New(timestamp.FormatArtifactory), today)
}

func TestService_Search(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   []string
		total  int
	}{
		{
			name:   "literal substring",
			params: Params{Query: "app-"},
			want:   []string{"/npm-dev/app/app-1.0.0.tgz", "/npm-dev/app/app-1.1.0.tgz"},
			total:  2,
		},
		{
			name:   "case insensitive by default",
			params: Params{Query: "lib-"},
			want:   []string{"/npm-dev/lib/Lib-2.0.0.tgz", "/npm-dev/lib/lib-broken.tgz"},
			total:  2,
		},
		{
			name:   "case sensitive",
			params: Params{Query: "Lib-", CaseSensitive: true},
			want:   []string{"/npm-dev/lib/Lib-2.0.0.tgz"},
			total:  1,
		},
		{
			name:   "literal dots are not wildcards",
			params: Params{Query: "1.0.0."},
			want:   []string{"/npm-dev/app/app-1.0.0.tgz"},
			total:  1,
		},
		{
			name:   "regex",
			params: Params{Query: `\.json$`, UseRegex: true},
			want:   []string{"/npm-dev/tools/cli-0.1.0.json"},
			total:  1,
		},
		{
			name:   "min age drops young and unreadable entries",
			params: Params{Query: "/npm-dev/", MinAgeDays: 100},
			want:   []string{"/npm-dev/app/app-1.0.0.tgz", "/npm-dev/tools/cli-0.1.0.json"},
			total:  2,
		},
		{
			name:   "pagination",
			params: Params{Query: "/npm-dev/", Limit: 2, Offset: 1},
			want:   []string{"/npm-dev/app/app-1.1.0.tgz", "/npm-dev/lib/Lib-2.0.0.tgz"},
			total:  5,
		},
		{
			name:   "offset past end",
			params: Params{Query: "/npm-dev/", Offset: 10},
			want:   nil,
			total:  5,
		},
	}

	svc := newService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := svc.Search(testCatalog(), tt.params)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if total != tt.total {
				t.Errorf("Search() total = %d, want %d", total, tt.total)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search() returned %d matches, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Path != tt.want[i] {
					t.Errorf("match[%d] = %q, want %q", i, m.Path, tt.want[i])
				}
			}
		})
	}
}

func TestService_SearchAges(t *testing.T) {
	got, _, err := newService().Search(testCatalog(), Params{Query: "app-1.0.0"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() returned %d matches, want 1", len(got))
	}
	if got[0].Date != "2024-01-01" {
		t.Errorf("Date = %q, want %q", got[0].Date, "2024-01-01")
	}
	if got[0].AgeDays != 152 {
		t.Errorf("AgeDays = %d, want 152", got[0].AgeDays)
	}

	got, _, _ = newService().Search(testCatalog(), Params{Query: "broken"})
	if len(got) != 1 || got[0].Date != "" {
		t.Errorf("unreadable timestamp match = %+v, want one match with no date", got)
	}
}

func TestService_SearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"empty query", Params{Query: "  "}},
		{"invalid regex", Params{Query: "[unclosed", UseRegex: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newService().Search(testCatalog(), tt.params)
			var searchErr *SearchError
			if !errors.As(err, &searchErr) {
				t.Errorf("Search() error = %v, want *SearchError", err)
			}
		})
	}
}

func TestService_SearchLargeCatalog(t *testing.T) {
	cat := catalog.Catalog{}
	for i := range 5000 {
		cat["/npm-dev/pkg/"+pad(i)+".tgz"] = "2024-05-01T00:00:00.000Z"
	}
	got, total, err := newService().Search(cat, Params{Query: "/pkg/00", Limit: 1000})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 100 {
		t.Errorf("total = %d, want 100", total)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Path >= got[i].Path {
			t.Fatalf("matches out of order at %d: %q >= %q", i, got[i-1].Path, got[i].Path)
		}
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pad(i int) string {
	return fmt.Sprintf("%04d", i)
}
