// Package pkg provides generic helpers shared by jumpscan commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync"
)

// Spill is an append-only list of T kept in a gob file instead of memory.
type Spill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	All() iter.Seq2[T, error]
	Close() error
}

type gobSpill[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
	closed  bool
}

// NewSpill creates an empty spill file in dir. An empty dir uses os.TempDir.
func NewSpill[T any](dir string) (Spill[T], error) {
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spill directory", "path", dir, "error", err)
		return nil, fmt.Errorf("create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "jumpscan-spill-*.gob")
	if err != nil {
		slog.Error("failed to create spill file", "path", dir, "error", err)
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	slog.Debug("created spill", "path", file.Name())

	return &gobSpill[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

func (s *gobSpill[T]) Path() string {
	return s.path
}

func (s *gobSpill[T]) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

func (s *gobSpill[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("append to closed spill %s", s.path)
	}

	if err := s.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", s.path, "index", s.length, "error", err)
		return fmt.Errorf("encode item %d: %w", s.length, err)
	}

	s.length++

	return nil
}

// All yields the items in append order. A decode failure is yielded once as
// the final pair.
func (s *gobSpill[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		s.mu.Lock()
		length := s.length
		s.mu.Unlock()

		file, err := os.Open(s.path)
		if err != nil {
			yield(zero, fmt.Errorf("open spill: %w", err))
			return
		}

		defer func() {
			if err := file.Close(); err != nil {
				slog.Error("failed to close spill reader", "path", s.path, "error", err)
			}
		}()

		decoder := gob.NewDecoder(file)

		for i := range length {
			var item T
			if err := decoder.Decode(&item); err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}

				yield(zero, fmt.Errorf("decode item %d: %w", i, err))

				return
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

// Close releases the file and removes it from disk.
func (s *gobSpill[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if err := s.file.Close(); err != nil {
		slog.Error("failed to close spill", "path", s.path, "error", err)
		return err
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove spill: %w", err)
	}

	slog.Debug("closed spill", "path", s.path, "length", s.length)

	return nil
}
