package fstab

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is the standard system mount table.
const DefaultPath = "/etc/fstab"

// StorageError wraps a failure to read or write the mount table file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Table is the ordered line sequence loaded from a mount table file. It is
// loaded fresh for every operation; the file is the sole source of truth.
type Table struct {
	lines []line
}

// Load reads the table at path. A missing file is created empty first, along
// with any missing parent directories, which mainly matters when an
// alternative table path is used (e.g. inside a chroot).
func Load(path string) (*Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &StorageError{Op: "create directory for", Path: path, Err: err}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, &StorageError{Op: "create", Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			return nil, &StorageError{Op: "create", Path: path, Err: err}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	t := &Table{}
	for _, raw := range splitLines(string(data)) {
		t.lines = append(t.lines, parseLine(raw))
	}
	return t, nil
}

// splitLines splits after each newline, keeping the terminator with its
// line. A final line without a trailing newline is preserved as-is.
func splitLines(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// Save writes the table back through a temporary file renamed over path, so
// a crash mid-write never leaves a half-written table behind.
func (t *Table) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fstab-*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	for _, l := range t.lines {
		if _, err := tmp.WriteString(l.raw); err != nil {
			_ = tmp.Close()
			return &StorageError{Op: "write", Path: path, Err: err}
		}
	}

	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return &StorageError{Op: "replace", Path: path, Err: err}
	}
	return nil
}

// Bytes returns the exact content Save would write.
func (t *Table) Bytes() []byte {
	var b strings.Builder
	for _, l := range t.lines {
		b.WriteString(l.raw)
	}
	return []byte(b.String())
}

// Entries returns copies of the parsed entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.lines))
	for _, l := range t.lines {
		if l.entry != nil {
			out = append(out, *l.entry)
		}
	}
	return out
}
