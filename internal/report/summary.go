package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Counts holds the sizes of the catalogs and lists of one run.
type Counts struct {
	Dev     int `yaml:"dev"`
	Release int `yaml:"release"`
	Keep    int `yaml:"keep"`
	Delete  int `yaml:"delete"`
	Skip    int `yaml:"skip"`
}

// Summary is the machine-readable record of a run.
type Summary struct {
	RunID         string    `yaml:"run_id"`
	Started       time.Time `yaml:"started"`
	Finished      time.Time `yaml:"finished"`
	Today         string    `yaml:"today"`
	ThresholdDays int       `yaml:"threshold_days"`
	Field         string    `yaml:"timestamp_field"`
	DevRepo       string    `yaml:"dev_repo"`
	ReleaseRepo   string    `yaml:"release_repo,omitempty"`
	Enforce       bool      `yaml:"enforce"`
	Truncated     bool      `yaml:"truncated,omitempty"`
	Counts        Counts    `yaml:"counts"`
}

// EncodeSummary writes s as YAML.
func EncodeSummary(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return enc.Close()
}

// DecodeSummary reads a summary written by EncodeSummary.
func DecodeSummary(r io.Reader) (Summary, error) {
	var s Summary
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return s, nil
}

// WriteSummary writes summary.yaml into the output directory.
func (w *Writer) WriteSummary(s Summary) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return w.writeFile(SummaryFile, func(f io.Writer) error {
		return EncodeSummary(f, s)
	})
}
