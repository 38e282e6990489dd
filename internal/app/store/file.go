/*
Package store implements the durable document store behind the chat engine.

This file defines the default file backend, which keeps the document as a
single JSON file rewritten atomically (write to a temporary file in the same
directory, then rename over the target).
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend persists the document as one JSON file on local disk.
type FileBackend struct {
	path string
}

// NewFileBackend creates the backend and the parent directory of path.
func NewFileBackend(path string) (*FileBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &FileBackend{path: path}, nil
}

// Load reads and decodes the document. A missing file yields an empty document.
func (b *FileBackend) Load(_ context.Context) (*Document, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, err)
	}

	return &doc, nil
}

// Save encodes the document and rewrites the file atomically.
func (b *FileBackend) Save(_ context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".chatsync-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}

	return nil
}
