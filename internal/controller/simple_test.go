package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

func newTestUI(t *testing.T, opts OutputOptions) (*SimpleUI, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	ui, err := NewSimpleUI(cmd, opts)
	require.NoError(t, err)

	return ui, &buf
}

func entriesOf(entries ...m.IndexEntry) iter.Seq2[m.IndexEntry, error] {
	return func(yield func(m.IndexEntry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func sampleMatches() []m.MatchResult {
	return []m.MatchResult{
		{
			Status:             m.MatchFound,
			ArrayPresent:       true,
			Element:            json.RawMessage(`{"billing_code":"0001"}`),
			Value:              "0001",
			DerivedIdentifiers: []any{json.Number("11"), json.Number("12")},
			Stats:              m.ScanStats{BytesRead: 2048, ElementsScanned: 3},
		},
		{
			Status:       m.MatchNotFound,
			ArrayPresent: true,
			Value:        "9999",
			Stats:        m.ScanStats{BytesRead: 4096, ElementsScanned: 8},
		},
		{
			Status:       m.MatchNotFound,
			ArrayPresent: false,
			Value:        "0002",
			Stats:        m.ScanStats{ArrayOffset: -1},
		},
	}
}

func TestNewSimpleUI_InvalidOptions(t *testing.T) {
	_, err := NewSimpleUI(&cobra.Command{}, OutputOptions{Format: "csv"})
	require.Error(t, err)

	_, err = NewSimpleUI(&cobra.Command{}, OutputOptions{JQ: ".["})
	require.Error(t, err)
}

func TestSimpleUI_DisplayMatches(t *testing.T) {
	tests := []struct {
		name         string
		opts         OutputOptions
		wantContains []string
	}{
		{
			name:         "table",
			opts:         OutputOptions{Format: FormatTable},
			wantContains: []string{"VALUE", "0001", "found", "9999", "not_found", "(no array)", "FOUND 1/3", "Derived identifiers for 0001: 11, 12", "2.0 KiB"},
		},
		{
			name:         "json",
			opts:         OutputOptions{Format: FormatJSON},
			wantContains: []string{`"status": "found"`, `"billing_code": "0001"`, `"array_present": false`},
		},
		{
			name:         "yaml",
			opts:         OutputOptions{Format: FormatYAML},
			wantContains: []string{"status: found", "billing_code:", "- 11"},
		},
		{
			name:         "jq",
			opts:         OutputOptions{Format: FormatYAML, JQ: `[.[] | select(.status == "found") | .value]`},
			wantContains: []string{`"0001"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui, buf := newTestUI(t, tt.opts)

			require.NoError(t, ui.DisplayMatches(context.Background(), sampleMatches()))

			got := buf.String()
			for _, want := range tt.wantContains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestSimpleUI_DisplayMatches_FirstElementLabel(t *testing.T) {
	ui, buf := newTestUI(t, OutputOptions{})

	err := ui.DisplayMatches(context.Background(), []m.MatchResult{{Status: m.MatchEmpty, ArrayPresent: true}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), firstElementLabel)
	assert.Contains(t, buf.String(), "empty")
}

func TestSimpleUI_DisplayCollection(t *testing.T) {
	result := m.MultiIDResult{
		ByID: map[string]m.IdentifierValues{
			"7": {Identifier: "7", Values: []any{json.Number("1234567890"), json.Number("42")}},
		},
		Found:        []string{"7"},
		Missing:      []string{"9"},
		ArrayPresent: true,
		Stats:        m.ScanStats{ElementsScanned: 2, CorruptElements: 1},
	}

	ui, buf := newTestUI(t, OutputOptions{})
	require.NoError(t, ui.DisplayCollection(context.Background(), result))

	got := buf.String()
	for _, want := range []string{"IDENTIFIER", "1234567890, 42", "missing", "FOUND 1", "MISSING 1", "1 malformed skipped"} {
		assert.Contains(t, got, want)
	}

	ui, buf = newTestUI(t, OutputOptions{Format: FormatJSON})
	require.NoError(t, ui.DisplayCollection(context.Background(), result))
	assert.Equal(t, `[1234567890,42]`, gjson.Get(buf.String(), "by_id.7.values|@ugly").Raw)
}

func TestSimpleUI_DisplayIndex(t *testing.T) {
	entries := []m.IndexEntry{
		{Ordinal: 0, Offset: 12, Value: "0001", Present: true},
		{Ordinal: 1, Offset: 40},
	}
	stats := m.ScanStats{ArrayOffset: 11, ElementsScanned: 2}

	t.Run("table", func(t *testing.T) {
		ui, buf := newTestUI(t, OutputOptions{})
		require.NoError(t, ui.DisplayIndex(context.Background(), entriesOf(entries...), stats))

		got := buf.String()
		assert.Contains(t, got, "OFFSET")
		assert.Contains(t, got, "0001")
		assert.Contains(t, got, "-")
		assert.Contains(t, got, "Scanned 2 element(s) at offset 11")
	})

	t.Run("json lines", func(t *testing.T) {
		ui, buf := newTestUI(t, OutputOptions{Format: FormatJSON})
		require.NoError(t, ui.DisplayIndex(context.Background(), entriesOf(entries...), stats))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, `{"ordinal":0,"offset":12,"value":"0001"}`, lines[0])
		assert.Equal(t, `{"ordinal":1,"offset":40,"value":null}`, lines[1])
	})

	t.Run("jq", func(t *testing.T) {
		ui, buf := newTestUI(t, OutputOptions{JQ: ".offset"})
		require.NoError(t, ui.DisplayIndex(context.Background(), entriesOf(entries...), stats))
		assert.Equal(t, "12\n40\n", buf.String())
	})
}

func TestSimpleUI_DisplayIndexTableWritesPages(t *testing.T) {
	ui, buf := newTestUI(t, OutputOptions{})
	total := 2*indexPageSize + 1
	writtenBeforeLast := -1

	entries := func(yield func(m.IndexEntry, error) bool) {
		for i := range total {
			if i == total-1 {
				writtenBeforeLast = buf.Len()
			}

			if !yield(m.IndexEntry{Ordinal: i, Offset: int64(i * 10), Value: strconv.Itoa(i), Present: true}, nil) {
				return
			}
		}
	}

	require.NoError(t, ui.DisplayIndex(context.Background(), entries, m.ScanStats{ArrayOffset: 1}))

	assert.Positive(t, writtenBeforeLast)
	assert.Less(t, writtenBeforeLast, buf.Len())

	got := buf.String()
	assert.Equal(t, 1, strings.Count(got, "OFFSET"))
	assert.Contains(t, got, strconv.Itoa(total))
	assert.Contains(t, got, "ELEMENTS")
}

func TestSimpleUI_DisplayIndexTableReadError(t *testing.T) {
	ui, _ := newTestUI(t, OutputOptions{})
	boom := errors.New("spill corrupted")

	entries := func(yield func(m.IndexEntry, error) bool) {
		yield(m.IndexEntry{}, boom)
	}

	err := ui.DisplayIndex(context.Background(), entries, m.ScanStats{})
	require.ErrorIs(t, err, boom)
}

func TestSimpleUI_DisplayDocument(t *testing.T) {
	info := m.DocumentInfo{
		Path:        "rates.json",
		Exists:      true,
		Size:        3 << 20,
		ModTime:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fingerprint: "abc123",
	}

	ui, buf := newTestUI(t, OutputOptions{})
	require.NoError(t, ui.DisplayDocument(context.Background(), info))
	assert.Contains(t, buf.String(), "3.0 MiB")
	assert.Contains(t, buf.String(), "abc123")

	ui, buf = newTestUI(t, OutputOptions{Format: FormatJSON})
	require.NoError(t, ui.DisplayDocument(context.Background(), m.DocumentInfo{Path: "gone.json"}))
	assert.False(t, gjson.Get(buf.String(), "exists").Bool())
	assert.False(t, gjson.Get(buf.String(), "size").Exists())
}

func TestSimpleUI_DisplayDecompression(t *testing.T) {
	ui, buf := newTestUI(t, OutputOptions{})
	require.NoError(t, ui.DisplayDecompression(context.Background(), "a.json.gz", "a.json", 1536))
	assert.Equal(t, "Decompressed a.json.gz -> a.json (1.5 KiB)\n", buf.String())
}

func TestSimpleUI_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui, buf := newTestUI(t, OutputOptions{})
	require.ErrorIs(t, ui.DisplayMatches(ctx, sampleMatches()), context.Canceled)
	assert.Empty(t, buf.String())
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{5 << 30, "5.0 GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in))
	}
}
