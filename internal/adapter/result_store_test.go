package adapter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

func TestCacheKey(t *testing.T) {
	info := m.DocumentInfo{Fingerprint: "abc"}

	key := CacheKey(info, "find", "in_network", "billing_code", "99213")
	assert.Equal(t, key, CacheKey(info, "find", "in_network", "billing_code", "99213"))
	assert.NotEqual(t, key, CacheKey(info, "find", "in_network", "billing_code", "99214"))
	assert.NotEqual(t, key, CacheKey(m.DocumentInfo{Fingerprint: "abd"}, "find", "in_network", "billing_code", "99213"))
	assert.NotEqual(t, CacheKey(info, "find", "ab", "c"), CacheKey(info, "find", "a", "bc"))
	assert.Contains(t, key, "find-")
}

func TestFileResultStore_Match(t *testing.T) {
	store := NewFileResultStore(m.Path(filepath.Join(t.TempDir(), "cache")))

	_, ok, err := store.LoadMatch("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := m.MatchResult{
		Status:             m.MatchFound,
		ArrayPresent:       true,
		Element:            json.RawMessage(`{"billing_code":"99213","negotiated_rates":[{"provider_references":[1,2]}]}`),
		Value:              "99213",
		DerivedIdentifiers: []any{json.Number("1"), "2", json.Number("3.50")},
		Stats: m.ScanStats{
			BytesRead:       120,
			DocumentSize:    4096,
			ArrayOffset:     17,
			ElementsScanned: 3,
			CorruptElements: 1,
			Duration:        42 * time.Millisecond,
		},
	}

	require.NoError(t, store.SaveMatch("k1", want))

	got, ok, err := store.LoadMatch("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileResultStore_NotFoundMatch(t *testing.T) {
	store := NewFileResultStore(m.Path(t.TempDir()))

	require.NoError(t, store.SaveMatch("k", m.MatchResult{Status: m.MatchNotFound, Stats: m.ScanStats{ArrayOffset: -1}}))

	got, ok, err := store.LoadMatch("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m.MatchNotFound, got.Status)
	assert.False(t, got.ArrayPresent)
	assert.Nil(t, got.Element)
	assert.Empty(t, got.DerivedIdentifiers)
	assert.Equal(t, int64(-1), got.Stats.ArrayOffset)
}

func TestFileResultStore_Collection(t *testing.T) {
	store := NewFileResultStore(m.Path(t.TempDir()))

	want := m.MultiIDResult{
		ByID: map[string]m.IdentifierValues{
			"1":   {Identifier: "1", Values: []any{json.Number("1234567890"), "x"}},
			"a.b": {Identifier: "a.b", Values: []any{}},
		},
		Found:        []string{"1", "a.b"},
		Missing:      []string{"9"},
		ArrayPresent: true,
		Stats:        m.ScanStats{BytesRead: 10, ElementsScanned: 2},
	}

	require.NoError(t, store.SaveCollection("c1", want))

	got, ok, err := store.LoadCollection("c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileResultStore_IgnoresCorruptEntries(t *testing.T) {
	dir := t.TempDir()
	store := NewFileResultStore(m.Path(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"version":1,`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(`{"version":0}`), 0o600))

	_, ok, err := store.LoadMatch("bad")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.LoadCollection("old")
	require.NoError(t, err)
	assert.False(t, ok)
}
