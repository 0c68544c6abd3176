package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// ErrUnsupportedCompression is returned for source files whose extension
// names no known compression format.
var ErrUnsupportedCompression = errors.New("unsupported compression format")

// Compression identifies a supported compression format.
type Compression string

// Supported formats.
const (
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

var compressionExtensions = map[string]Compression{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".lz4":  CompressionLZ4,
}

// DetectCompression reports the compression format implied by path's extension.
func DetectCompression(path m.Path) (Compression, error) {
	ext := strings.ToLower(filepath.Ext(string(path)))
	if c, ok := compressionExtensions[ext]; ok {
		return c, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedCompression, ext)
}

// DecompressedPath strips the compression extension from path, or returns
// path with a ".json" suffix when it has none.
func DecompressedPath(path m.Path) m.Path {
	p := string(path)
	if _, err := DetectCompression(path); err == nil {
		return m.Path(strings.TrimSuffix(p, filepath.Ext(p)))
	}

	return m.Path(p + ".json")
}

// Decompressor expands compressed documents onto local storage.
type Decompressor interface {
	// Decompress streams src into dst and returns the number of bytes
	// written. dst only appears once it is complete.
	Decompress(ctx context.Context, src, dst m.Path) (int64, error)
}

// LocalDecompressor decompresses files on the local file system.
type LocalDecompressor struct{}

// NewLocalDecompressor constructs a LocalDecompressor.
func NewLocalDecompressor() *LocalDecompressor {
	return &LocalDecompressor{}
}

// Decompress implements Decompressor.
func (d *LocalDecompressor) Decompress(ctx context.Context, src, dst m.Path) (int64, error) {
	compression, err := DetectCompression(src)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(string(src))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", m.ErrSourceUnavailable, err)
	}
	defer in.Close()

	reader, closeReader, err := newDecompressingReader(compression, in)
	if err != nil {
		return 0, fmt.Errorf("open %s stream: %w", compression, err)
	}
	defer closeReader()

	dir := filepath.Dir(string(dst))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(string(dst))+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false

	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, &contextReader{ctx: ctx, r: reader})
	if err != nil {
		_ = tmp.Close()
		return written, fmt.Errorf("decompress %s: %w", src, err)
	}

	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, string(dst)); err != nil {
		return written, fmt.Errorf("move into place: %w", err)
	}

	committed = true

	slog.Info("decompressed document", "src", src, "dst", dst, "format", compression, "bytes", written)

	return written, nil
}

func newDecompressingReader(c Compression, r io.Reader) (io.Reader, func(), error) {
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return gz, func() { _ = gz.Close() }, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}

		return zr, zr.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedCompression, c)
}

// contextReader fails reads once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
