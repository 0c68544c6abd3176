package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// Format selects how results are written.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. An empty name selects FormatTable.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}

	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", name)
}

// OutputOptions configures result rendering.
type OutputOptions struct {
	Format Format
	// JQ is a jq program applied to the JSON form of every result. When set,
	// results are written as JSON regardless of Format.
	JQ string
}

func compileJQ(expr string) (*gojq.Code, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse jq filter: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile jq filter: %w", err)
	}

	return code, nil
}

// jsonBuilder accumulates sjson edits and keeps the first error.
type jsonBuilder struct {
	doc []byte
	err error
}

func newObject() *jsonBuilder {
	return &jsonBuilder{doc: []byte(`{}`)}
}

func (b *jsonBuilder) set(path string, value any) *jsonBuilder {
	if b.err == nil {
		b.doc, b.err = sjson.SetBytes(b.doc, path, value)
	}

	return b
}

func (b *jsonBuilder) setRaw(path string, raw []byte) *jsonBuilder {
	if b.err == nil {
		b.doc, b.err = sjson.SetRawBytes(b.doc, path, raw)
	}

	return b
}

func (b *jsonBuilder) setValues(path string, values []any) *jsonBuilder {
	b.set(path, []any{})

	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil && b.err == nil {
			b.err = err
		}

		b.setRaw(path+".-1", raw)
	}

	return b
}

func (b *jsonBuilder) setStats(stats m.ScanStats) *jsonBuilder {
	return b.
		set("stats.bytes_read", stats.BytesRead).
		set("stats.document_size", stats.DocumentSize).
		set("stats.array_offset", stats.ArrayOffset).
		set("stats.elements_scanned", stats.ElementsScanned).
		set("stats.corrupt_elements", stats.CorruptElements).
		set("stats.duration_ms", stats.Duration.Milliseconds())
}

func (b *jsonBuilder) bytes() ([]byte, error) {
	return b.doc, b.err
}

func matchJSON(r m.MatchResult) ([]byte, error) {
	b := newObject().
		set("value", r.Value).
		set("status", string(r.Status)).
		set("array_present", r.ArrayPresent)

	if len(r.Element) > 0 {
		b.setRaw("element", r.Element)
	} else {
		b.setRaw("element", []byte("null"))
	}

	return b.setValues("derived_identifiers", r.DerivedIdentifiers).setStats(r.Stats).bytes()
}

func matchesJSON(results []m.MatchResult) ([]byte, error) {
	doc := []byte(`[]`)

	for _, r := range results {
		obj, err := matchJSON(r)
		if err != nil {
			return nil, err
		}

		if doc, err = sjson.SetRawBytes(doc, "-1", obj); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func collectionJSON(r m.MultiIDResult) ([]byte, error) {
	b := newObject().
		set("array_present", r.ArrayPresent).
		set("found", orEmpty(r.Found)).
		set("missing", orEmpty(r.Missing)).
		set("by_id", map[string]any{})

	for _, id := range r.Found {
		path := "by_id." + gjson.Escape(id)
		b.set(path+".identifier", id).setValues(path+".values", r.ByID[id].Values)
	}

	return b.setStats(r.Stats).bytes()
}

func indexEntryJSON(e m.IndexEntry) ([]byte, error) {
	b := newObject().set("ordinal", e.Ordinal).set("offset", e.Offset)
	if e.Present {
		b.set("value", e.Value)
	} else {
		b.setRaw("value", []byte("null"))
	}

	return b.bytes()
}

func documentJSON(info m.DocumentInfo) ([]byte, error) {
	b := newObject().
		set("path", string(info.Path)).
		set("exists", info.Exists)

	if info.Exists {
		b.set("size", info.Size).
			set("modified", info.ModTime.UTC().Format("2006-01-02T15:04:05Z07:00")).
			set("fingerprint", info.Fingerprint)
	}

	return b.bytes()
}

func decompressionJSON(src, dst m.Path, written int64) ([]byte, error) {
	return newObject().
		set("source", string(src)).
		set("destination", string(dst)).
		set("bytes", written).
		bytes()
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}

	return ids
}

// decodeJSON decodes doc keeping numbers as json.Number.
func decodeJSON(doc []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return v, nil
}

// writeJQ runs code on doc and writes every emitted value as indented JSON.
func writeJQ(ctx context.Context, out io.Writer, code *gojq.Code, doc []byte) error {
	input, err := decodeJSON(doc)
	if err != nil {
		return err
	}

	iter := code.RunWithContext(ctx, input)

	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}

		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}

		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode jq output: %w", err)
		}

		if _, err := fmt.Fprintf(out, "%s\n", encoded); err != nil {
			return err
		}
	}
}

func writePrettyJSON(out io.Writer, doc []byte) error {
	_, err := io.WriteString(out, gjson.GetBytes(doc, "@pretty").Raw)
	return err
}

// writeYAML converts doc to YAML. Numbers are emitted as YAML numbers with
// their JSON text.
func writeYAML(out io.Writer, doc []byte) error {
	v, err := decodeJSON(doc)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)

	if err := enc.Encode(yamlNode(v)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

func yamlNode(v any) *yaml.Node {
	switch v := v.(type) {
	case map[string]any:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range sortedKeys(v) {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				yamlNode(v[key]))
		}

		return node
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v {
			node.Content = append(node.Content, yamlNode(item))
		}

		return node
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}

		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v)}
	}

	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// formatValue renders a collected value for tables.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(raw)
}

func formatValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, formatValue(v))
	}

	return strings.Join(parts, ", ")
}

func sortedKeys(v map[string]any) []string {
	return slices.Sorted(maps.Keys(v))
}
