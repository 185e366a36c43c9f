// Package kv is a tiny durable key/value store: one file per key in a
// directory. It plays the part a browser's local storage would.
package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores values as files under Path. No locking; single user.
type Dir struct {
	Path string
	Perm os.FileMode
}

// Open returns a Dir rooted at path, creating it with 0700.
func Open(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv: empty directory")
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Dir{Path: path, Perm: 0o600}, nil
}

func (d *Dir) file(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("kv: invalid key %q", key)
	}
	return filepath.Join(d.Path, key), nil
}

// Get returns the value for key. ok is false when nothing is stored.
func (d *Dir) Get(key string) (value []byte, ok bool, err error) {
	p, err := d.file(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return b, true, nil
}

// Set overwrites the value for key.
func (d *Dir) Set(key string, value []byte) error {
	p, err := d.file(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, value, d.Perm); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (d *Dir) Delete(key string) error {
	p, err := d.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
