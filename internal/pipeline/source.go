package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields the delivery page once it has finished loading. Snapshot
// blocks until the page is ready.
type Source interface {
	Snapshot(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a saved page from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Snapshot(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open page file: %w", err)
	}
	return f, nil
}

// BytesSource serves page markup already held in memory.
type BytesSource []byte

func (s BytesSource) Snapshot(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s)), nil
}
