package uri

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		repo  string
		parts []string
		want  string
	}{
		{"root child", "npm-dev", []string{"/", "/foo"}, "/npm-dev/foo"},
		{"nested", "npm-dev", []string{"/foo/1.0.0", "/a.tgz"}, "/npm-dev/foo/1.0.0/a.tgz"},
		{"double slashes", "bh-snapshots", []string{"//com/", "/x.jar"}, "/bh-snapshots/com/x.jar"},
		{"repo only", "npm-release", nil, "/npm-release"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.repo, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key      string
		wantRepo string
		wantRest string
	}{
		{"/npm-dev/foo/a.tgz", "npm-dev", "/foo/a.tgz"},
		{"/npm-dev", "npm-dev", "/"},
		{"npm-dev/x", "npm-dev", "/x"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			repo, rest := SplitKey(tt.key)
			if repo != tt.wantRepo || rest != tt.wantRest {
				t.Errorf("SplitKey(%q) = %q, %q, want %q, %q", tt.key, repo, rest, tt.wantRepo, tt.wantRest)
			}
		})
	}
}

func TestStorageAndItemURL(t *testing.T) {
	base := "http://artifactory.example.com:8081/artifactory/"

	tests := []struct {
		name        string
		key         string
		wantStorage string
		wantItem    string
	}{
		{
			name:        "simple",
			key:         "/npm-dev/foo/1.0.0/a.tgz",
			wantStorage: "http://artifactory.example.com:8081/artifactory/api/storage/npm-dev/foo/1.0.0/a.tgz",
			wantItem:    "http://artifactory.example.com:8081/artifactory/npm-dev/foo/1.0.0/a.tgz",
		},
		{
			name:        "spaces and parens",
			key:         "/npm-dev/foo/file name (1).txt",
			wantStorage: "http://artifactory.example.com:8081/artifactory/api/storage/npm-dev/foo/file%20name%20%281%29.txt",
			wantItem:    "http://artifactory.example.com:8081/artifactory/npm-dev/foo/file%20name%20%281%29.txt",
		},
		{
			name:        "scoped package",
			key:         "/npm-dev/@scope/pkg",
			wantStorage: "http://artifactory.example.com:8081/artifactory/api/storage/npm-dev/@scope/pkg",
			wantItem:    "http://artifactory.example.com:8081/artifactory/npm-dev/@scope/pkg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StorageURL(base, tt.key); got != tt.wantStorage {
				t.Errorf("StorageURL() = %q, want %q", got, tt.wantStorage)
			}
			if got := ItemURL(base, tt.key); got != tt.wantItem {
				t.Errorf("ItemURL() = %q, want %q", got, tt.wantItem)
			}
			if got := StripStorageAPI(tt.wantStorage); got != tt.wantItem {
				t.Errorf("StripStorageAPI() = %q, want %q", got, tt.wantItem)
			}
		})
	}
}
