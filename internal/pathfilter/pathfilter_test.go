package pathfilter

import (
	"fmt"
	"strings"
	"testing"
)

func TestMatcher_EmptyExcludesNothing(t *testing.T) {
	for _, rules := range [][]string{nil, {}, {"", "  "}} {
		m := MustNew(rules)
		if !m.Empty() {
			t.Errorf("Empty() = false for %q", rules)
		}
		if m.IsExcluded("/anything/at/all") {
			t.Errorf("IsExcluded with rules %q = true, want false", rules)
		}
	}

	var nilMatcher *Matcher
	if nilMatcher.IsExcluded("/x") {
		t.Error("nil matcher should exclude nothing")
	}
}

func TestMatcher_SubstringFolders(t *testing.T) {
	m := MustNew([]string{"master-SNAPSHOT", "development-SNAPSHOT", "develop-SNAPSHOT", "dev-SNAPSHOT"})

	tests := []struct {
		path string
		want bool
	}{
		{"/com/acme/app/master-SNAPSHOT", true},
		{"/com/acme/app/master-SNAPSHOT/sub", true},
		{"/com/acme/app/feature-x-SNAPSHOT", false},
		{"/com/acme/app/develop-SNAPSHOT", true},
		{"/com/acme/app/mydev-SNAPSHOT-2", true},
		{"/com/acme/app/MASTER-SNAPSHOT", false},
		{"/com/acme/app/1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := m.IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatcher_FileNames(t *testing.T) {
	m := MustNew([]string{"DONOTDELETE", "DO_NOT_DELETE", "DONTDELETE", "DONT_DELETE", "maven-metadata.xml"})

	tests := []struct {
		name string
		want bool
	}{
		{"app-1.0.tgz", false},
		{"app-1.0-DO_NOT_DELETE.tgz", true},
		{"keepme.DONTDELETE", true},
		{"maven-metadata.xml", true},
		{"maven-metadata.xml.sha1", true},
		{"do_not_delete.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsExcluded(tt.name); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMatcher_RegexSpecialCharactersAreLiteral(t *testing.T) {
	m := MustNew([]string{"a.b", "(copy)", "c++", "[x]"})

	tests := []struct {
		candidate string
		want      bool
	}{
		{"/repo/a.b/file", true},
		{"/repo/aXb/file", false},
		{"/repo/file (copy).tgz", true},
		{"/repo/copy/file", false},
		{"/repo/c++/lib", true},
		{"/repo/x/lib", false},
		{"/repo/[x]/lib", true},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			if got := m.IsExcluded(tt.candidate); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestMatcher_RegexRules(t *testing.T) {
	m := MustNew([]string{`re:/[01]\.[01]-SNAPSHOT`, "support_fixes"})

	tests := []struct {
		candidate string
		want      bool
	}{
		{"/com/acme/0.1-SNAPSHOT", true},
		{"/com/acme/1.0-SNAPSHOT/x.jar", true},
		{"/com/acme/2.0-SNAPSHOT", false},
		{"/com/acme/support_fixes-SNAPSHOT", true},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			if got := m.IsExcluded(tt.candidate); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestNew_InvalidRegex(t *testing.T) {
	if _, err := New([]string{"re:(unclosed"}); err == nil {
		t.Error("New with invalid regex rule should fail")
	}
}

func TestMatcher_OverlappingRules(t *testing.T) {
	// Rules sharing prefixes and suffixes exercise the fail links.
	m := MustNew([]string{"he", "she", "his", "hers", "usher-x"})

	tests := []struct {
		candidate string
		want      string
	}{
		{"ushers", "she"},
		{"ahishers", "his"},
		{"xxhexx", "he"},
		{"hxsxr", ""},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			got, ok := m.Match(tt.candidate)
			if tt.want == "" {
				if ok {
					t.Errorf("Match(%q) = %q, want no match", tt.candidate, got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Errorf("Match(%q) = %q, %v, want %q", tt.candidate, got, ok, tt.want)
			}
		})
	}
}

func TestMatcher_AgreesWithStringsContains(t *testing.T) {
	rules := []string{"ab", "bca", "caab", "abcab", "b", "zzz"}
	m := MustNew(rules[:len(rules)-1])
	candidates := []string{"", "a", "ab", "cab", "ccc", "acacac", "zzzb", "xyz", "caac", "bca"}

	for _, c := range candidates {
		want := false
		for _, r := range rules[:len(rules)-1] {
			if strings.Contains(c, r) {
				want = true
				break
			}
		}
		if got := m.IsExcluded(c); got != want {
			t.Errorf("IsExcluded(%q) = %v, want %v", c, got, want)
		}
	}
}

func TestMatcher_Filter(t *testing.T) {
	m := MustNew([]string{"tmp"})
	got := m.Filter([]string{"/a", "/tmp/b", "/c/tmpfile", "/d"})
	if fmt.Sprint(got) != "[/a /d]" {
		t.Errorf("Filter() = %v, want [/a /d]", got)
	}
}

func TestMatcher_Rules(t *testing.T) {
	rules := []string{"x", "re:y+"}
	m := MustNew(rules)
	got := m.Rules()
	got[0] = "mutated"
	if m.Rules()[0] != "x" {
		t.Error("Rules() must return a copy")
	}
}
