// Package report writes the keep, delete and skip lists and the run summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/taigrr/artifact-reaper/internal/classify"
	"github.com/taigrr/artifact-reaper/internal/types"
)

// Default file names inside the output directory.
const (
	KeepFile    = "keepers.txt"
	DeleteFile  = "deleters.txt"
	SkipFile    = "skipped.txt"
	SummaryFile = "summary.yaml"
)

const rule = "#" + "============================================================"

// Kind identifies an output list.
type Kind int

const (
	KindKeep Kind = iota
	KindDelete
	KindSkip
)

// Header describes the run parameters shown on top of every list.
type Header struct {
	Threshold   int
	Field       types.TimestampField
	FolderRules []string
	FileRules   []string
	ReleaseRepo string
}

func (h Header) lines(kind Kind) []string {
	lines := []string{rule}
	switch kind {
	case KindKeep:
		if h.ReleaseRepo != "" {
			lines = append(lines, "# These files were found in "+h.ReleaseRepo+" or are too young to delete.")
		}
		lines = append(lines, fmt.Sprintf("# Files not in a release are kept while their %s date is <= %d days old.", h.Field, h.Threshold))
	case KindDelete:
		lines = append(lines,
			"# These files are marked for deletion because they are not released and",
			"# do not match a skip rule.",
			fmt.Sprintf("# Their %s date is > %d days old.", h.Field, h.Threshold))
	case KindSkip:
		lines = append(lines,
			"# These entries will not be removed because of one of the following:",
			"# 1) the date could not be read or the item could not be fetched",
			"# 2) the file name matches one of",
			"#      "+strings.Join(h.FileRules, ", "),
			"# 3) the folder matches one of",
			"#      "+strings.Join(h.FolderRules, ", "))
	}
	return append(lines, rule)
}

// WriteList writes the header for kind followed by the sorted entries.
func WriteList(w io.Writer, kind Kind, h Header, entries []string) error {
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)

	bw := bufio.NewWriter(w)
	for _, line := range h.lines(kind) {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	for _, e := range sorted {
		if _, err := fmt.Fprintln(bw, e); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadList returns the entries of a list, dropping comments and blank lines.
func ReadList(r io.Reader) ([]string, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return entries, nil
}

// ReadListFile is ReadList on a file.
func ReadListFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()
	return ReadList(f)
}

// SkipEntries renders walker skips and classifier skips as skip list lines.
func SkipEntries(walk []types.SkipRecord, classified []types.Record) []string {
	records := append([]types.SkipRecord(nil), walk...)
	for _, rec := range classified {
		reason := types.SkipMalformed
		if rec.Reason == types.ReasonConsistency {
			reason = types.SkipConsistency
		}
		records = append(records, types.SkipRecord{Path: rec.Path, Reason: reason})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.String()
	}
	return lines
}

// Writer writes lists into one directory.
type Writer struct {
	dir string
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Path returns the full path of a file in the output directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteAll writes the three lists for a classification result.
func (w *Writer) WriteAll(res *classify.Result, walkSkips []types.SkipRecord, h Header) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lists := []struct {
		name    string
		kind    Kind
		entries []string
	}{
		{KeepFile, KindKeep, classify.Paths(res.Keep)},
		{DeleteFile, KindDelete, classify.Paths(res.Delete)},
		{SkipFile, KindSkip, SkipEntries(walkSkips, res.Skip)},
	}
	for _, l := range lists {
		if err := w.writeFile(l.name, func(f io.Writer) error {
			return WriteList(f, l.kind, h, l.entries)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFile(name string, fn func(io.Writer) error) error {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
