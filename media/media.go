// Package media stores uploaded files under a public root directory and
// hands back store-relative paths that can be embedded directly in URLs.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a named file does not exist.
	ErrNotFound = errors.New("media: file not found")
	// ErrTooLarge is returned by Put when the stream exceeds the size limit.
	ErrTooLarge = errors.New("media: file exceeds size limit")
	// ErrInvalidName is returned for names that would escape their directory.
	ErrInvalidName = errors.New("media: invalid file name")
)

const tempPrefix = ".upload-"

// Store writes, lists and removes files below a public root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root (the directory served as "/").
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the public root directory.
func (s *Store) Root() string {
	return s.root
}

// Put streams r into dir under a freshly generated name with the given
// extension and returns the store-relative path ("/<dir>/<uuid>.<ext>").
// Data is written to a temporary file first and only linked into place once
// fully received, so an aborted stream never leaves a file under the final
// name. A positive max bounds the number of bytes accepted.
func (s *Store) Put(dir string, r io.Reader, ext string, max int64) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("media: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(target, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("media: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	src := r
	if max > 0 {
		src = io.LimitReader(r, max+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return "", fmt.Errorf("media: write: %w", err)
	}
	if max > 0 && n > max {
		return "", ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("media: close: %w", err)
	}

	name := uuid.NewString()
	if ext = cleanExt(ext); ext != "" {
		name += "." + ext
	}
	final := filepath.Join(target, name)
	// Link refuses to replace an existing file.
	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("media: name collision for %s: %w", name, err)
		}
		if err := os.Rename(tmpName, final); err != nil {
			return "", fmt.Errorf("media: commit: %w", err)
		}
	} else {
		os.Remove(tmpName)
	}
	committed = true

	return "/" + path.Join(filepath.ToSlash(dir), name), nil
}

// Remove deletes a file by its store-relative path.
func (s *Store) Remove(rel string) error {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return err
}

// Delete removes the file name from dir.
func (s *Store) Delete(dir, name string) error {
	p, err := s.Path(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("media: delete %s: %w", name, err)
	}
	return nil
}

// Path returns the filesystem path of name inside dir. Names containing
// separators or dot segments are rejected.
func (s *Store) Path(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, filepath.FromSlash(dir), name), nil
}

// List returns the regular files in dir ordered by modification time,
// oldest first, with ties broken by name. A missing directory lists as
// empty, and files that vanish while listing are skipped.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("media: list %s: %w", dir, err)
	}

	type file struct {
		name string
		mod  int64
	}
	files := make([]file, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod != files[j].mod {
			return files[i].mod < files[j].mod
		}
		return files[i].name < files[j].name
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// cleanExt lowercases ext and drops anything that is not a short
// alphanumeric extension.
func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if len(ext) == 0 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
