package artifactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taigrr/artifact-reaper/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestFetch_Folder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/storage/npm-dev/foo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if u, p, ok := r.BasicAuth(); !ok || u != "bob" || p != "secret" {
			t.Errorf("basic auth = %q/%q/%v", u, p, ok)
		}
		w.Write([]byte(`{"repo":"npm-dev","path":"/foo","children":[{"uri":"/1.0.0","folder":true},{"uri":"/x.tgz","folder":false}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, User: "bob", Password: "secret", Retry: fastPolicy()}, nil)
	node, err := c.Fetch(context.Background(), "/npm-dev/foo")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !node.IsFolder() || len(node.Children) != 2 || !node.Children[0].Folder {
		t.Errorf("node = %+v", node)
	}
}

func TestFetch_File(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uri":"http://x/api/storage/npm-dev/a.tgz","created":"2020-01-01T00:00:00.000-05:00","lastModified":"2020-02-01T00:00:00.000-05:00"}`))
	}))
	defer srv.Close()

	node, err := New(Config{BaseURL: srv.URL, Retry: fastPolicy()}, nil).Fetch(context.Background(), "/npm-dev/a.tgz")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if node.IsFolder() || node.Created != "2020-01-01T00:00:00.000-05:00" {
		t.Errorf("node = %+v", node)
	}
}

func TestFetch_ErrorsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"status":404,"message":"Unable to find item"}]}`))
	}))
	defer srv.Close()

	node, err := New(Config{BaseURL: srv.URL, Retry: fastPolicy()}, nil).Fetch(context.Background(), "/npm-dev/gone")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(node.Errors) != 1 || node.Errors[0].Status != 404 {
		t.Errorf("Errors = %+v", node.Errors)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"path":"/","children":[]}`))
	}))
	defer srv.Close()

	if _, err := New(Config{BaseURL: srv.URL, Retry: fastPolicy()}, nil).Fetch(context.Background(), "/npm-dev"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetch_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(Config{BaseURL: srv.URL, Retry: fastPolicy()}, nil).Fetch(context.Background(), "/npm-dev"); err == nil {
		t.Fatal("Fetch() expected error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDeleteAndProbe(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, User: "u", Password: "p"}, nil)
	tests := []struct {
		name   string
		call   func(context.Context, string) (int, error)
		method string
	}{
		{"delete", c.Delete, http.MethodDelete},
		{"probe", c.Probe, http.MethodGet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := tt.call(context.Background(), "/npm-dev/foo/a b.tgz")
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if status != http.StatusNoContent {
				t.Errorf("status = %d", status)
			}
			if gotMethod != tt.method || gotPath != "/npm-dev/foo/a b.tgz" {
				t.Errorf("request = %s %s", gotMethod, gotPath)
			}
		})
	}
}

func TestHasCredentials(t *testing.T) {
	if New(Config{User: "u"}, nil).HasCredentials() {
		t.Error("HasCredentials() = true without password")
	}
	if !New(Config{User: "u", Password: "p"}, nil).HasCredentials() {
		t.Error("HasCredentials() = false")
	}
}
