package jsonscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the read size used when no chunk size is configured.
const DefaultChunkSize = 4 << 20

const maxConsecutiveEmptyReads = 100

// Decision tells the scanner how to proceed after an element was handed out.
type Decision int

const (
	// Continue resumes scanning with the next element.
	Continue Decision = iota
	// Stop ends the scan immediately.
	Stop
)

// ElementFunc receives the verbatim text of one top-level array element.
// The slice is reused by the scanner and is only valid until the function returns.
type ElementFunc func(element []byte) (Decision, error)

// ProgressFunc is called after every chunk read with the absolute offset just
// past the last byte read.
type ProgressFunc func(offset int64)

// Cursor is the lexical state carried across chunk boundaries.
type Cursor struct {
	InString    bool
	EscapedNext bool
	Depth       int
}

// consume updates the quote and escape state for b and reports whether b
// was read outside of any string, i.e. whether it is structural.
func (c *Cursor) consume(b byte) bool {
	if c.EscapedNext {
		c.EscapedNext = false
		return false
	}

	if c.InString {
		switch b {
		case '\\':
			c.EscapedNext = true
		case '"':
			c.InString = false
		}

		return false
	}

	if b == '"' {
		c.InString = true
		return false
	}

	return true
}

// Scanner walks a JSON byte stream chunk by chunk.
// A Scanner is owned by a single goroutine.
type Scanner struct {
	r        io.Reader
	buf      []byte
	start    int
	end      int
	base     int64 // absolute offset of buf[0]
	pending  error
	eof      bool
	cursor   Cursor
	element  []byte
	progress ProgressFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithChunkSize sets the number of bytes requested per read.
func WithChunkSize(size int) Option {
	return func(s *Scanner) {
		if size > 0 {
			s.buf = make([]byte, size)
		}
	}
}

// WithBaseOffset declares the absolute offset of the first byte the reader
// will return, for readers that were positioned before scanning.
func WithBaseOffset(offset int64) Option {
	return func(s *Scanner) {
		s.base = offset
	}
}

// WithProgress registers a callback fired after every chunk read.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) {
		s.progress = fn
	}
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader, opts ...Option) *Scanner {
	s := &Scanner{r: r}
	for _, opt := range opts {
		opt(s)
	}

	if s.buf == nil {
		s.buf = make([]byte, DefaultChunkSize)
	}

	return s
}

// Offset returns the absolute offset of the next unread byte.
func (s *Scanner) Offset() int64 {
	return s.base + int64(s.start)
}

// Cursor returns a copy of the current lexical state.
func (s *Scanner) Cursor() Cursor {
	return s.cursor
}

// Locate searches the remaining stream for the first occurrence of token and
// leaves the scanner positioned right after it. It returns the absolute offset
// of the token's first byte, or ErrTokenNotFound.
//
// The search is a raw substring match with no JSON awareness. A tail of
// len(token)-1 bytes is kept between chunks so a token split across two reads
// is still found.
func (s *Scanner) Locate(ctx context.Context, token []byte) (int64, error) {
	if len(token) == 0 {
		return 0, ErrEmptyToken
	}

	keep := len(token) - 1
	tail := make([]byte, 0, 2*keep)

	for {
		if s.start == s.end {
			if err := s.fill(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return 0, ErrTokenNotFound
				}

				return 0, err
			}
		}

		data := s.buf[s.start:s.end]

		if len(tail) > 0 {
			joined := append(tail, data[:min(keep, len(data))]...)
			if i := bytes.Index(joined, token); i >= 0 {
				at := s.Offset() - int64(len(tail)) + int64(i)
				s.start += i + len(token) - len(tail)
				s.cursor = Cursor{}

				return at, nil
			}
		}

		if i := bytes.Index(data, token); i >= 0 {
			at := s.Offset() + int64(i)
			s.start += i + len(token)
			s.cursor = Cursor{}

			return at, nil
		}

		tail = retainTail(tail, data, keep)
		s.start = s.end
	}
}

// retainTail keeps the last keep bytes of tail+data in tail's storage.
// tail must have a capacity of at least 2*keep.
func retainTail(tail, data []byte, keep int) []byte {
	if len(data) >= keep {
		return append(tail[:0], data[len(data)-keep:]...)
	}

	tail = append(tail, data...)
	if extra := len(tail) - keep; extra > 0 {
		n := copy(tail, tail[extra:])
		tail = tail[:n]
	}

	return tail
}

// SeekArrayOpen consumes bytes up to and including the next unquoted '['
// and returns its absolute offset. Only whitespace, ':' and complete quoted
// strings may precede it; anything else yields ErrNotArray.
func (s *Scanner) SeekArrayOpen(ctx context.Context) (int64, error) {
	for {
		if s.start == s.end {
			if err := s.fill(ctx); err != nil {
				return 0, s.endOfStream(err, "before array opened")
			}
		}

		for i := s.start; i < s.end; i++ {
			b := s.buf[i]
			if !s.cursor.consume(b) {
				continue
			}

			switch b {
			case '[':
				s.start = i + 1
				s.cursor.Depth = 0

				return s.base + int64(i), nil
			case ' ', '\t', '\n', '\r', ':':
			default:
				s.start = i

				return 0, fmt.Errorf("%w: found %q at offset %d", ErrNotArray, b, s.base+int64(i))
			}
		}

		s.start = s.end
	}
}

// Elements hands every object or array element of the array opened by
// SeekArrayOpen to fn, in document order. Primitive elements are skipped.
// It returns nil when the array closes or fn returns Stop.
func (s *Scanner) Elements(ctx context.Context, fn ElementFunc) error {
	s.element = s.element[:0]

	for {
		if s.start == s.end {
			if err := s.fill(ctx); err != nil {
				return s.endOfStream(err, "inside array")
			}
		}

		mark := s.start

		for i := s.start; i < s.end; i++ {
			b := s.buf[i]
			if !s.cursor.consume(b) {
				continue
			}

			switch b {
			case '{', '[':
				if s.cursor.Depth == 0 {
					mark = i
				}

				s.cursor.Depth++
			case '}', ']':
				if s.cursor.Depth == 0 {
					if b == ']' {
						s.start = i + 1
						return nil
					}

					return fmt.Errorf("%w: unexpected '}' at offset %d", ErrUnbalanced, s.base+int64(i))
				}

				s.cursor.Depth--
				if s.cursor.Depth > 0 {
					continue
				}

				s.element = append(s.element, s.buf[mark:i+1]...)
				s.start = i + 1

				decision, err := fn(s.element)
				s.element = s.element[:0]

				if err != nil {
					return err
				}

				if decision == Stop {
					return nil
				}
			}
		}

		if s.cursor.Depth > 0 {
			s.element = append(s.element, s.buf[mark:s.end]...)
		}

		s.start = s.end
	}
}

// SkipArray jumps over the next array without buffering any of it. It
// returns the absolute offset of the array's closing bracket.
func (s *Scanner) SkipArray(ctx context.Context) (int64, error) {
	if _, err := s.SeekArrayOpen(ctx); err != nil {
		return 0, err
	}

	s.cursor.Depth = 1

	for {
		if s.start == s.end {
			if err := s.fill(ctx); err != nil {
				return 0, s.endOfStream(err, "inside skipped array")
			}
		}

		for i := s.start; i < s.end; i++ {
			b := s.buf[i]
			if !s.cursor.consume(b) {
				continue
			}

			switch b {
			case '{', '[':
				s.cursor.Depth++
			case '}', ']':
				s.cursor.Depth--
				if s.cursor.Depth == 0 {
					s.start = i + 1
					return s.base + int64(i), nil
				}
			}
		}

		s.start = s.end
	}
}

// fill replaces the consumed chunk with the next one from the reader.
// The context is checked at every chunk boundary.
func (s *Scanner) fill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.pending != nil {
		return s.pending
	}

	if s.eof {
		return io.EOF
	}

	s.base += int64(s.end)
	s.start, s.end = 0, 0

	for range maxConsecutiveEmptyReads {
		n, err := s.r.Read(s.buf)

		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			s.pending = fmt.Errorf("%w at offset %d: %w", ErrRead, s.base+int64(n), err)
		}

		if n > 0 {
			s.end = n
			if s.progress != nil {
				s.progress(s.base + int64(n))
			}

			return nil
		}

		if s.eof {
			return io.EOF
		}

		if s.pending != nil {
			return s.pending
		}
	}

	return fmt.Errorf("%w at offset %d: %w", ErrRead, s.base, io.ErrNoProgress)
}

func (s *Scanner) endOfStream(err error, where string) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: stream ended %s at offset %d", ErrTruncated, where, s.Offset())
	}

	return err
}

// Scan runs the full pipeline on a reader already positioned at startOffset:
// it seeks the array opening and feeds each element to fn.
func Scan(ctx context.Context, r io.Reader, startOffset int64, fn ElementFunc, opts ...Option) error {
	s := NewScanner(r, append(opts, WithBaseOffset(startOffset))...)
	if _, err := s.SeekArrayOpen(ctx); err != nil {
		return err
	}

	return s.Elements(ctx, fn)
}

// Locate reports the absolute offset of the first occurrence of token in r.
func Locate(ctx context.Context, r io.Reader, token []byte, chunkSize int) (int64, error) {
	return NewScanner(r, WithChunkSize(chunkSize)).Locate(ctx, token)
}
