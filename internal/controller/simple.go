package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"time"

	"github.com/itchyny/gojq"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const firstElementLabel = "(first)"

const indexPageSize = 256

// SimpleUI implements UI by writing results to the command's output.
type SimpleUI struct {
	cmd    *cobra.Command
	format Format
	jq     *gojq.Code
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, opts OutputOptions) (*SimpleUI, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	code, err := compileJQ(opts.JQ)
	if err != nil {
		return nil, err
	}

	return &SimpleUI{cmd: cmd, format: format, jq: code}, nil
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(context.Context) {}

// DisplayProgress is a no-op: plain output only carries results.
func (s *SimpleUI) DisplayProgress(context.Context, string, int64, int64) {}

// DisplayMatches prints field-match or first-element results.
func (s *SimpleUI) DisplayMatches(ctx context.Context, results []m.MatchResult) error {
	doc, err := matchesJSON(results)
	if err != nil {
		return fmt.Errorf("render matches: %w", err)
	}

	return s.emit(ctx, doc, func(out io.Writer) error {
		s.printf(out, "\n%s", renderMatchTable(results))

		for _, r := range results {
			if r.Status != m.MatchFound || len(r.DerivedIdentifiers) == 0 {
				continue
			}

			s.printf(out, "Derived identifiers for %s: %s\n", matchLabel(r), formatValues(r.DerivedIdentifiers))
		}

		return nil
	})
}

// DisplayCollection prints the values collected per identifier.
func (s *SimpleUI) DisplayCollection(ctx context.Context, result m.MultiIDResult) error {
	doc, err := collectionJSON(result)
	if err != nil {
		return fmt.Errorf("render collection: %w", err)
	}

	return s.emit(ctx, doc, func(out io.Writer) error {
		s.printf(out, "\n%s", renderCollectionTable(result))
		s.printf(out, "%s\n", describeStats(result.Stats, result.ArrayPresent))

		return nil
	})
}

// DisplayIndex prints every listed entry as it comes off the iterator. The
// table format is written in pages of indexPageSize rows, the other formats
// one document per entry.
func (s *SimpleUI) DisplayIndex(ctx context.Context, entries iter.Seq2[m.IndexEntry, error], stats m.ScanStats) error {
	out := s.cmd.OutOrStdout()

	if s.jq == nil && s.format == FormatTable {
		s.printf(out, "\n")

		if err := writeIndexTable(ctx, out, entries); err != nil {
			return err
		}

		s.printf(out, "%s\n", describeStats(stats, stats.ArrayOffset >= 0))

		return nil
	}

	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := indexEntryJSON(entry)
		if err != nil {
			return fmt.Errorf("render index entry: %w", err)
		}

		switch {
		case s.jq != nil:
			err = writeJQ(ctx, out, s.jq, doc)
		case s.format == FormatYAML:
			err = writeYAML(out, doc)
		default:
			_, err = fmt.Fprintf(out, "%s\n", doc)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// DisplayDocument prints document metadata.
func (s *SimpleUI) DisplayDocument(ctx context.Context, info m.DocumentInfo) error {
	doc, err := documentJSON(info)
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}

	return s.emit(ctx, doc, func(out io.Writer) error {
		s.printf(out, "\n%s", renderDocumentTable(info))
		return nil
	})
}

// DisplayDecompression prints where a document was expanded to.
func (s *SimpleUI) DisplayDecompression(ctx context.Context, src, dst m.Path, written int64) error {
	doc, err := decompressionJSON(src, dst, written)
	if err != nil {
		return fmt.Errorf("render decompression: %w", err)
	}

	return s.emit(ctx, doc, func(out io.Writer) error {
		s.printf(out, "Decompressed %s -> %s (%s)\n", src, dst, humanBytes(written))
		return nil
	})
}

// emit writes doc in the configured format, or calls table for FormatTable.
func (s *SimpleUI) emit(ctx context.Context, doc []byte, table func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := s.cmd.OutOrStdout()

	switch {
	case s.jq != nil:
		return writeJQ(ctx, out, s.jq, doc)
	case s.format == FormatJSON:
		return writePrettyJSON(out, doc)
	case s.format == FormatYAML:
		return writeYAML(out, doc)
	}

	return table(out)
}

func (s *SimpleUI) printf(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(out, format, args...)
}

func matchLabel(r m.MatchResult) string {
	if r.Value == "" {
		return firstElementLabel
	}

	return r.Value
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
	}

	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

func renderMatchTable(results []m.MatchResult) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Value", "Status", "Derived", "Elements", "Read"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	found := 0

	for _, r := range results {
		status := string(r.Status)
		if !r.ArrayPresent {
			status += " (no array)"
		}

		if r.Status == m.MatchFound {
			found++
		}

		table.Append([]string{
			matchLabel(r),
			status,
			strconv.Itoa(len(r.DerivedIdentifiers)),
			strconv.Itoa(r.Stats.ElementsScanned),
			humanBytes(r.Stats.BytesRead),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("Found %d/%d", found, len(results)), "", "", "", ""})
	table.Render()

	return buf.String()
}

func renderCollectionTable(result m.MultiIDResult) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Identifier", "Status", "Values"})

	for _, id := range result.Found {
		table.Append([]string{id, "found", formatValues(result.ByID[id].Values)})
	}

	for _, id := range result.Missing {
		table.Append([]string{id, "missing", ""})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Found %d", len(result.Found)),
		fmt.Sprintf("Missing %d", len(result.Missing)),
		"",
	})
	table.Render()

	return buf.String()
}

// writeIndexTable renders entries to out one page at a time so at most
// indexPageSize rows are held in memory. Only the first page carries the
// header and only the last one the footer.
func writeIndexTable(ctx context.Context, out io.Writer, entries iter.Seq2[m.IndexEntry, error]) error {
	rows := make([][]string, 0, indexPageSize)
	count, pages := 0, 0

	flush := func(footer []string) {
		var header []string
		if pages == 0 {
			header = []string{"#", "Offset", "Value"}
		}

		table := newTable(out, header)
		table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
		table.AppendBulk(rows)

		if footer != nil {
			table.SetFooter(footer)
		}

		table.Render()

		rows = rows[:0]
		pages++
	}

	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		value := entry.Value
		if !entry.Present {
			value = "-"
		}

		rows = append(rows, []string{strconv.Itoa(entry.Ordinal), strconv.FormatInt(entry.Offset, 10), value})
		count++

		if len(rows) == indexPageSize {
			flush(nil)
		}
	}

	flush([]string{"", "Elements", strconv.Itoa(count)})

	return nil
}

func renderDocumentTable(info m.DocumentInfo) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Field", "Value"})
	table.Append([]string{"Path", string(info.Path)})
	table.Append([]string{"Exists", strconv.FormatBool(info.Exists)})

	if info.Exists {
		table.Append([]string{"Size", humanBytes(info.Size)})
		table.Append([]string{"Modified", info.ModTime.Format(time.RFC3339)})
		table.Append([]string{"Fingerprint", info.Fingerprint})
	}

	table.Render()

	return buf.String()
}

func describeStats(stats m.ScanStats, present bool) string {
	if !present {
		return fmt.Sprintf("Array not present; read %s of %s", humanBytes(stats.BytesRead), humanBytes(stats.DocumentSize))
	}

	summary := fmt.Sprintf("Scanned %d element(s) at offset %d; read %s of %s in %s",
		stats.ElementsScanned, stats.ArrayOffset,
		humanBytes(stats.BytesRead), humanBytes(stats.DocumentSize),
		stats.Duration.Round(time.Millisecond))

	if stats.CorruptElements > 0 {
		summary += fmt.Sprintf(" (%d malformed skipped)", stats.CorruptElements)
	}

	return summary
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
