// Package catalog holds flat path-to-timestamp catalogs and their text form.
//
// The persisted form is one "path|timestamp" line per entry, sorted by path.
// Lines starting with '#' are comments. Paths must not contain '|' or a
// newline; this is not escaped.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Separator divides path and timestamp on a catalog line.
const Separator = "|"

var (
	// ErrMalformedLine describes a line that is not exactly "path|timestamp".
	ErrMalformedLine = errors.New("malformed catalog line")
	// ErrNotFound is returned by a Store when a catalog does not exist.
	ErrNotFound = errors.New("catalog not found")
)

// Catalog maps a repository-relative path to its timestamp string.
type Catalog map[string]string

// Keys returns the paths in lexicographic order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Equal reports whether both catalogs hold the same entries.
func (c Catalog) Equal(other Catalog) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Encode writes c to w, preceded by the header lines as '#' comments.
func Encode(w io.Writer, c Catalog, header ...string) error {
	bw := bufio.NewWriter(w)
	for _, h := range header {
		if _, err := fmt.Fprintf(bw, "# %s\n", h); err != nil {
			return err
		}
	}
	for _, k := range c.Keys() {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", k, Separator, c[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a catalog from r. Malformed lines are logged and dropped;
// only read failures are returned as errors.
func Decode(r io.Reader, logger *zap.Logger) (Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := make(Catalog)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		path, ts, err := ParseLine(line)
		if err != nil {
			logger.Warn("dropping catalog line",
				zap.Int("line", lineNo),
				zap.String("text", line),
				zap.Error(err))
			continue
		}
		c[path] = ts
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return c, nil
}

// ParseLine splits one catalog line into path and timestamp.
func ParseLine(line string) (string, string, error) {
	fields := strings.Split(line, Separator)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("%w: %d fields", ErrMalformedLine, len(fields))
	}
	return fields[0], fields[1], nil
}
