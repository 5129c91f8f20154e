package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
)

// ErrInvalidURL is wrapped by ParseError when a record does not start with a URL.
var ErrInvalidURL = errors.New("invalid manifest URL")

// ParseError reports a malformed manifest record.
type ParseError struct {
	// File is the manifest name as given to Parse or Load.
	File string

	// Line is the 1-based line number of the record.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IgnoreList is the set of URL paths excluded from link checking.
// It is read-only once built.
type IgnoreList struct {
	paths []string
}

// Empty returns an IgnoreList with no paths.
func Empty() *IgnoreList {
	return &IgnoreList{}
}

// Paths returns a sorted copy of the ignored paths.
func (l *IgnoreList) Paths() []string {
	if l == nil {
		return nil
	}
	return slices.Clone(l.paths)
}

// Len returns the number of ignored paths.
func (l *IgnoreList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.paths)
}

// Contains reports whether path is ignored.
func (l *IgnoreList) Contains(path string) bool {
	if l == nil {
		return false
	}
	_, found := slices.BinarySearch(l.paths, path)
	return found
}

// Load reads and parses the manifest at path.
// An empty path yields an empty list.
func Load(path string) (*IgnoreList, error) {
	if path == "" {
		return Empty(), nil
	}

	f, err := os.Open(path) //nolint:gosec // User-provided manifest path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return Parse(f, path)
}

// Parse reads manifest records from r.
//
// Each non-blank line is a whitespace-delimited record whose first token is
// a URL. The URL path, without its leading slash, joins the list. Lines whose
// first token starts with '#' are comments. The result is sorted and
// de-duplicated, so parsing the same input twice yields the same list.
func Parse(r io.Reader, name string) (*IgnoreList, error) {
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		path, err := recordPath(fields[0])
		if err != nil {
			return nil, &ParseError{File: name, Line: lineNo, Err: err}
		}
		if path == "" {
			continue
		}
		seen[path] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	return &IgnoreList{paths: paths}, nil
}

// recordPath extracts the ignore path from the first token of a record.
func recordPath(token string) (string, error) {
	u, err := url.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidURL, token, err) //nolint:errorlint // only the sentinel is matched
	}
	if u.Path == "" && u.Host == "" {
		return "", fmt.Errorf("%w %q: no path", ErrInvalidURL, token)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}
