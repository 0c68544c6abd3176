// Package adapter contains the storage and I/O adapters used by jumpscan.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const minReadBurst = 4 << 10

// Document is an open, sequentially read document.
type Document interface {
	io.ReadCloser
	// BytesRead reports how many bytes were handed to the caller so far.
	BytesRead() int64
	// Size is the document size at open time.
	Size() int64
}

// DocumentSource abstracts how documents are located and opened so queries
// can run against fixtures in tests.
type DocumentSource interface {
	// Stat describes the document at path. A missing file is reported
	// through DocumentInfo.Exists rather than an error.
	Stat(path m.Path) (m.DocumentInfo, error)

	// Open opens the document for a single sequential pass. Reads fail
	// once ctx is done.
	Open(ctx context.Context, path m.Path) (Document, error)
}

// LocalDocumentSource reads documents from the local file system.
type LocalDocumentSource struct {
	limiter *rate.Limiter
}

// SourceOption configures a LocalDocumentSource.
type SourceOption func(*LocalDocumentSource)

// WithReadRate throttles reads to bytesPerSecond. Zero or a negative rate
// disables throttling.
func WithReadRate(bytesPerSecond float64) SourceOption {
	return func(s *LocalDocumentSource) {
		if bytesPerSecond <= 0 {
			s.limiter = nil
			return
		}

		burst := max(int(bytesPerSecond), minReadBurst)
		s.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
	}
}

// NewLocalDocumentSource constructs a LocalDocumentSource.
func NewLocalDocumentSource(opts ...SourceOption) *LocalDocumentSource {
	s := &LocalDocumentSource{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Stat implements DocumentSource.
func (s *LocalDocumentSource) Stat(path m.Path) (m.DocumentInfo, error) {
	info, err := os.Stat(string(path))
	if errors.Is(err, fs.ErrNotExist) {
		return m.DocumentInfo{Path: path}, nil
	}

	if err != nil {
		return m.DocumentInfo{Path: path}, fmt.Errorf("%w: stat %s: %w", m.ErrSourceUnavailable, path, err)
	}

	if info.IsDir() {
		return m.DocumentInfo{Path: path}, fmt.Errorf("%w: %s is a directory", m.ErrSourceUnavailable, path)
	}

	return m.DocumentInfo{
		Path:        path,
		Exists:      true,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Fingerprint: fingerprint(path, info),
	}, nil
}

// Open implements DocumentSource.
func (s *LocalDocumentSource) Open(ctx context.Context, path m.Path) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", m.ErrSourceUnavailable, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %w", m.ErrSourceUnavailable, err)
	}

	slog.Debug("opened document", "path", path, "size", info.Size(), "throttled", s.limiter != nil)

	return &fileDocument{
		ctx:     ctx,
		file:    file,
		size:    info.Size(),
		limiter: s.limiter,
	}, nil
}

// fingerprint hashes the identity of an unmodified file: its path, size and
// modification time.
func fingerprint(path m.Path, info fs.FileInfo) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(string(path))
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(strconv.FormatInt(info.Size(), 10))
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))

	return strconv.FormatUint(digest.Sum64(), 16)
}

type fileDocument struct {
	ctx     context.Context
	file    *os.File
	size    int64
	read    atomic.Int64
	limiter *rate.Limiter
	closed  atomic.Bool
}

func (d *fileDocument) Read(p []byte) (int, error) {
	if err := d.ctx.Err(); err != nil {
		return 0, err
	}

	if d.limiter != nil {
		if burst := d.limiter.Burst(); len(p) > burst {
			p = p[:burst]
		}

		if err := d.limiter.WaitN(d.ctx, len(p)); err != nil {
			if ctxErr := d.ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}

			return 0, fmt.Errorf("throttle read: %w", err)
		}
	}

	n, err := d.file.Read(p)
	d.read.Add(int64(n))

	return n, err
}

func (d *fileDocument) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	slog.Debug("closed document", "path", d.file.Name(), "bytes_read", d.read.Load())

	return d.file.Close()
}

func (d *fileDocument) BytesRead() int64 {
	return d.read.Load()
}

func (d *fileDocument) Size() int64 {
	return d.size
}
