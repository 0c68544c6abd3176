package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const resultFormatVersion = 1

// ResultStore persists query results keyed by document fingerprint and query.
type ResultStore interface {
	LoadMatch(key string) (m.MatchResult, bool, error)
	SaveMatch(key string, result m.MatchResult) error
	LoadCollection(key string) (m.MultiIDResult, bool, error)
	SaveCollection(key string, result m.MultiIDResult) error
}

// CacheKey derives a store key from a document fingerprint, a query kind and
// the query's defining parts.
func CacheKey(info m.DocumentInfo, kind string, parts ...string) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(info.Fingerprint)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(kind)

	for _, part := range parts {
		_, _ = digest.WriteString("\x00")
		_, _ = digest.WriteString(part)
	}

	return kind + "-" + strconv.FormatUint(digest.Sum64(), 16)
}

// FileResultStore keeps one JSON file per result under a directory.
type FileResultStore struct {
	dir string
}

// NewFileResultStore returns a store rooted at dir. The directory is created
// on first save.
func NewFileResultStore(dir m.Path) *FileResultStore {
	return &FileResultStore{dir: string(dir)}
}

// SaveMatch implements ResultStore.
func (s *FileResultStore) SaveMatch(key string, result m.MatchResult) error {
	doc := []byte(`{}`)

	var err error

	set := func(path string, value any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}

	setRaw := func(path string, raw []byte) {
		if err == nil {
			doc, err = sjson.SetRawBytes(doc, path, raw)
		}
	}

	set("version", resultFormatVersion)
	set("status", string(result.Status))
	set("array_present", result.ArrayPresent)
	set("value", result.Value)

	if len(result.Element) > 0 {
		setRaw("element", result.Element)
	}

	set("derived", []any{})

	for _, v := range result.DerivedIdentifiers {
		raw, mErr := json.Marshal(v)
		if mErr != nil {
			return fmt.Errorf("encode derived identifier: %w", mErr)
		}

		setRaw("derived.-1", raw)
	}

	doc = setStats(doc, &err, result.Stats)
	if err != nil {
		return fmt.Errorf("encode match result: %w", err)
	}

	return s.write(key, doc)
}

// LoadMatch implements ResultStore.
func (s *FileResultStore) LoadMatch(key string) (m.MatchResult, bool, error) {
	doc, ok, err := s.read(key)
	if err != nil || !ok {
		return m.MatchResult{}, ok, err
	}

	result := m.MatchResult{
		Status:       m.MatchStatus(gjson.GetBytes(doc, "status").String()),
		ArrayPresent: gjson.GetBytes(doc, "array_present").Bool(),
		Value:        gjson.GetBytes(doc, "value").String(),
		Stats:        getStats(doc),
	}

	if element := gjson.GetBytes(doc, "element"); element.Exists() {
		result.Element = json.RawMessage(element.Raw)
	}

	for _, v := range gjson.GetBytes(doc, "derived").Array() {
		result.DerivedIdentifiers = append(result.DerivedIdentifiers, resultValue(v))
	}

	return result, true, nil
}

// SaveCollection implements ResultStore.
func (s *FileResultStore) SaveCollection(key string, result m.MultiIDResult) error {
	doc := []byte(`{}`)

	var err error

	set := func(path string, value any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}

	set("version", resultFormatVersion)
	set("array_present", result.ArrayPresent)
	set("found", nonNil(result.Found))
	set("missing", nonNil(result.Missing))
	set("by_id", []any{})

	for _, id := range result.Found {
		entry := []byte(`{}`)
		entry, err = sjson.SetBytes(entry, "identifier", id)

		if err == nil {
			entry, err = sjson.SetBytes(entry, "values", []any{})
		}

		for _, v := range result.ByID[id].Values {
			raw, mErr := json.Marshal(v)
			if mErr != nil {
				return fmt.Errorf("encode value for %s: %w", id, mErr)
			}

			if err == nil {
				entry, err = sjson.SetRawBytes(entry, "values.-1", raw)
			}
		}

		if err == nil {
			doc, err = sjson.SetRawBytes(doc, "by_id.-1", entry)
		}
	}

	doc = setStats(doc, &err, result.Stats)
	if err != nil {
		return fmt.Errorf("encode collection result: %w", err)
	}

	return s.write(key, doc)
}

// LoadCollection implements ResultStore.
func (s *FileResultStore) LoadCollection(key string) (m.MultiIDResult, bool, error) {
	doc, ok, err := s.read(key)
	if err != nil || !ok {
		return m.MultiIDResult{}, ok, err
	}

	result := m.MultiIDResult{
		ByID:         map[string]m.IdentifierValues{},
		Found:        []string{},
		Missing:      []string{},
		ArrayPresent: gjson.GetBytes(doc, "array_present").Bool(),
		Stats:        getStats(doc),
	}

	for _, id := range gjson.GetBytes(doc, "found").Array() {
		result.Found = append(result.Found, id.String())
	}

	for _, id := range gjson.GetBytes(doc, "missing").Array() {
		result.Missing = append(result.Missing, id.String())
	}

	gjson.GetBytes(doc, "by_id").ForEach(func(_, entry gjson.Result) bool {
		values := []any{}
		for _, v := range entry.Get("values").Array() {
			values = append(values, resultValue(v))
		}

		id := entry.Get("identifier").String()
		result.ByID[id] = m.IdentifierValues{Identifier: id, Values: values}

		return true
	})

	return result, true, nil
}

func setStats(doc []byte, err *error, stats m.ScanStats) []byte {
	fields := []struct {
		path  string
		value any
	}{
		{"stats.bytes_read", stats.BytesRead},
		{"stats.document_size", stats.DocumentSize},
		{"stats.array_offset", stats.ArrayOffset},
		{"stats.elements_scanned", stats.ElementsScanned},
		{"stats.corrupt_elements", stats.CorruptElements},
		{"stats.duration_ns", int64(stats.Duration)},
	}

	for _, f := range fields {
		if *err != nil {
			return doc
		}

		doc, *err = sjson.SetBytes(doc, f.path, f.value)
	}

	return doc
}

func getStats(doc []byte) m.ScanStats {
	stats := gjson.GetBytes(doc, "stats")

	return m.ScanStats{
		BytesRead:       stats.Get("bytes_read").Int(),
		DocumentSize:    stats.Get("document_size").Int(),
		ArrayOffset:     stats.Get("array_offset").Int(),
		ElementsScanned: int(stats.Get("elements_scanned").Int()),
		CorruptElements: int(stats.Get("corrupt_elements").Int()),
		Duration:        time.Duration(stats.Get("duration_ns").Int()),
	}
}

// resultValue converts a stored value back to the shape produced by a scan:
// numbers as json.Number with their literal text, strings as string.
func resultValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Null:
		return nil
	}

	var out any

	dec := json.NewDecoder(bytes.NewReader([]byte(v.Raw)))
	dec.UseNumber()

	if err := dec.Decode(&out); err != nil {
		return v.Raw
	}

	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}

	return ids
}

func (s *FileResultStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileResultStore) read(key string) ([]byte, bool, error) {
	doc, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("read cached result: %w", err)
	}

	if !gjson.ValidBytes(doc) || gjson.GetBytes(doc, "version").Int() != resultFormatVersion {
		slog.Warn("ignoring unreadable cached result", "key", key, "path", s.path(key))
		return nil, false, nil
	}

	return doc, true, nil
}

func (s *FileResultStore) write(key string, doc []byte) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write cache file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store cache file: %w", err)
	}

	slog.Debug("stored result", "key", key, "bytes", len(doc))

	return nil
}
