// Package envfile reads and edits flat KEY=value configuration files of the
// kind shared with the deployment shell scripts. Edits preserve every
// unrelated line byte-for-byte: the file is shared state, not owned by this
// tool.
package envfile

import (
	"fmt"
	"os"
	"strings"
)

// File is an in-memory copy of one KEY=value file. Lines are kept verbatim
// so comments, blank lines, and keys this tool does not understand survive
// a round trip untouched.
type File struct {
	path  string
	lines []string
}

// Load reads the file at path. A missing file is an error; callers that
// treat absence as "no prior state" should use LoadOrEmpty.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	// Splitting a trailing-newline file yields one empty trailing element;
	// drop it so Save does not accumulate blank lines.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return &File{path: path, lines: lines}, nil
}

// LoadOrEmpty is Load, except a missing file yields an empty File bound to
// path rather than an error.
func LoadOrEmpty(path string) (*File, error) {
	f, err := Load(path)
	if os.IsNotExist(err) {
		return &File{path: path}, nil
	}
	return f, err
}

// Lookup returns the value of key, with surrounding single or double
// quotes stripped. The second result is false when the key is absent.
// The last occurrence wins, matching shell sourcing semantics.
func (f *File) Lookup(key string) (string, bool) {
	value, found := "", false
	for _, line := range f.lines {
		k, v, ok := splitLine(line)
		if ok && k == key {
			value, found = v, true
		}
	}
	return value, found
}

// Set replaces the value of key in place, or appends a new line when the
// key is not present. Values are written double-quoted.
func (f *File) Set(key, value string) {
	line := fmt.Sprintf("%s=%q", key, value)
	for i, existing := range f.lines {
		if k, _, ok := splitLine(existing); ok && k == key {
			f.lines[i] = line
			return
		}
	}
	f.lines = append(f.lines, line)
}

// Save writes the file back to its path with a trailing newline.
func (f *File) Save() error {
	content := strings.Join(f.lines, "\n") + "\n"
	if err := os.WriteFile(f.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// splitLine parses one KEY=value line. Comment lines, blank lines, and
// lines without "=" report ok=false.
func splitLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	eq := strings.Index(trimmed, "=")
	if eq <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(trimmed[:eq])
	value = strings.TrimSpace(trimmed[eq+1:])
	value = unquote(value)
	return key, value, true
}

// unquote strips one matching pair of surrounding single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
