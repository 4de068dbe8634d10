package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, err := New(Config{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	WithRun(logger, "run-1").Info("scan started", zap.String("repo", "npm-dev"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{`"run_id":"run-1"`, `"repo":"npm-dev"`, "scan started"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %s:\n%s", want, data)
		}
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, err := New(Config{Level: "warn", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("unexpected log contents:\n%s", data)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext() returned nil")
	}
	logger := zap.NewExample()
	if FromContext(NewContext(context.Background(), logger)) != logger {
		t.Error("FromContext() did not return stored logger")
	}
}
