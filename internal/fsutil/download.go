// Package fsutil writes downloaded documents into a directory the user
// picked, without letting a file name escape it.
package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrPathTraversal = errors.New("file name escapes download directory")

// Within maps name onto a path directly under dir. Names with separators
// or dot segments are rejected, and so is an existing symlink at the
// target since creating through it would write elsewhere.
func Within(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("download directory is required")
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrPathTraversal
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	p := filepath.Join(abs, name)
	if filepath.Dir(p) != filepath.Clean(abs) {
		return "", ErrPathTraversal
	}
	if st, err := os.Lstat(p); err == nil && st.Mode()&os.ModeSymlink != 0 {
		return "", ErrPathTraversal
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return p, nil
}

// WriteFile creates dir if needed and fills name inside it. A file that
// fill fails on is removed. It returns the written path.
func WriteFile(dir, name string, fill func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p, err := Within(dir, name)
	if err != nil {
		return "", err
	}
	return p, Create(p, fill)
}

// Create writes path from fill and removes it if fill or close fails.
func Create(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = fill(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
