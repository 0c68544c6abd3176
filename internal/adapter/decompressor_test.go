package adapter

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const compressedPayload = `{"in_network":[{"billing_code":"99213"}]}`

func compress(t *testing.T, c Compression, data string) []byte {
	t.Helper()

	var buf bytes.Buffer

	var w io.WriteCloser

	switch c {
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	case CompressionZstd:
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)

		w = zw
	case CompressionLZ4:
		w = lz4.NewWriter(&buf)
	}

	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestDetectCompression(t *testing.T) {
	tests := []struct {
		path string
		want Compression
	}{
		{"rates.json.gz", CompressionGzip},
		{"RATES.JSON.GZ", CompressionGzip},
		{"rates.json.zst", CompressionZstd},
		{"rates.zstd", CompressionZstd},
		{"rates.json.lz4", CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectCompression(m.Path(tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DetectCompression("rates.json")
	require.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestDecompressedPath(t *testing.T) {
	assert.Equal(t, m.Path("dir/rates.json"), DecompressedPath("dir/rates.json.gz"))
	assert.Equal(t, m.Path("rates.json"), DecompressedPath("rates.json.zst"))
	assert.Equal(t, m.Path("rates.bin.json"), DecompressedPath("rates.bin"))
}

func TestLocalDecompressor_Decompress(t *testing.T) {
	for ext, c := range map[string]Compression{".gz": CompressionGzip, ".zst": CompressionZstd, ".lz4": CompressionLZ4} {
		t.Run(string(c), func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "rates.json"+ext)
			dst := filepath.Join(dir, "out", "rates.json")
			require.NoError(t, os.WriteFile(src, compress(t, c, compressedPayload), 0o600))

			n, err := NewLocalDecompressor().Decompress(context.Background(), m.Path(src), m.Path(dst))
			require.NoError(t, err)
			assert.Equal(t, int64(len(compressedPayload)), n)

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, compressedPayload, string(got))
		})
	}
}

func TestLocalDecompressor_Failures(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewLocalDecompressor().Decompress(context.Background(), "rates.json", "out.json")
		require.ErrorIs(t, err, ErrUnsupportedCompression)
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewLocalDecompressor().Decompress(context.Background(),
			m.Path(filepath.Join(dir, "nope.gz")), m.Path(filepath.Join(dir, "out.json")))
		require.ErrorIs(t, err, m.ErrSourceUnavailable)
	})

	t.Run("corrupt stream leaves no destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "bad.json.gz")
		dst := filepath.Join(dir, "bad.json")
		valid := compress(t, CompressionGzip, strings.Repeat(compressedPayload, 100))
		require.NoError(t, os.WriteFile(src, valid[:len(valid)/2], 0o600))

		_, err := NewLocalDecompressor().Decompress(context.Background(), m.Path(src), m.Path(dst))
		require.Error(t, err)
		assert.NoFileExists(t, dst)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "rates.json.gz")
		dst := filepath.Join(dir, "rates.json")
		require.NoError(t, os.WriteFile(src, compress(t, CompressionGzip, compressedPayload), 0o600))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewLocalDecompressor().Decompress(ctx, m.Path(src), m.Path(dst))
		require.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, dst)
	})
}
