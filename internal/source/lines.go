package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"logsift/internal/logging"
)

// MaxLineSize is the longest line a reader accepts. Longer lines are
// skipped whole.
const MaxLineSize = 1 << 20

const readBufferSize = 64 * 1024

// Line is one non-blank line of input.
type Line struct {
	Path   string
	Number int // 1-based, counting blank and skipped lines
	Text   string
}

// Lines lazily reads r line by line. Trailing "\r" is stripped, blank
// lines are skipped, and lines over MaxLineSize are dropped without
// ending the sequence. Read errors and cancellation end the sequence
// with an error.
func Lines(ctx context.Context, path string, r io.Reader) iter.Seq2[Line, error] {
	return readLines(ctx, nil, path, r)
}

func readLines(ctx context.Context, logger *slog.Logger, path string, r io.Reader) iter.Seq2[Line, error] {
	logger = logging.Default(logger)
	return func(yield func(Line, error) bool) {
		var (
			sp      splitter
			n       int
			stopped bool
		)
		emit := func(text []byte, tooLong bool) bool {
			n++
			if err := ctx.Err(); err != nil {
				yield(Line{}, err)
				stopped = true
				return false
			}
			if tooLong {
				logger.Debug("skipping over-long line", "path", path, "line", n)
				return true
			}
			text = trimCR(text)
			if len(text) == 0 {
				return true
			}
			if !yield(Line{Path: path, Number: n, Text: string(text)}, nil) {
				stopped = true
				return false
			}
			return true
		}

		_, more, err := sp.read(bufio.NewReaderSize(r, readBufferSize), emit)
		if stopped || !more {
			return
		}
		if err != nil {
			yield(Line{}, err)
			return
		}
		if text, tooLong, ok := sp.rest(); ok {
			emit(text, tooLong)
		}
	}
}

// OpenLines opens location and streams its lines, closing the reader
// when the sequence ends.
func (o *Opener) OpenLines(ctx context.Context, location string) iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		rc, err := o.Open(ctx, location)
		if err != nil {
			yield(Line{}, err)
			return
		}
		defer func() { _ = rc.Close() }()
		for l, err := range readLines(ctx, o.logger, location, rc) {
			if !yield(l, err) || err != nil {
				return
			}
		}
	}
}

// splitter cuts a byte stream into lines. Bytes after the last newline
// are held until more input arrives; at most MaxLineSize bytes are held.
type splitter struct {
	partial  []byte
	overflow bool // discarding the rest of an over-long line
}

// read consumes br until EOF or a read error, calling emit with each
// complete line (newline removed). The line passed to emit is only valid
// during the call. read reports the bytes consumed and whether emit
// wants more; io.EOF is not returned as an error.
func (s *splitter) read(br *bufio.Reader, emit func(line []byte, tooLong bool) bool) (int64, bool, error) {
	var n int64
	for {
		chunk, err := br.ReadSlice('\n')
		n += int64(len(chunk))
		switch {
		case err == nil:
			line, tooLong := s.complete(chunk[:len(chunk)-1])
			if !emit(line, tooLong) {
				return n, false, nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			s.hold(chunk)
		case errors.Is(err, io.EOF):
			s.hold(chunk)
			return n, true, nil
		default:
			return n, true, err
		}
	}
}

// rest returns the unterminated remainder at end of input.
func (s *splitter) rest() (line []byte, tooLong, ok bool) {
	if s.overflow {
		s.overflow = false
		return nil, true, true
	}
	if len(s.partial) == 0 {
		return nil, false, false
	}
	line = s.partial
	s.partial = nil
	return line, false, true
}

func (s *splitter) reset() {
	s.partial = nil
	s.overflow = false
}

func (s *splitter) hold(b []byte) {
	if s.overflow || len(b) == 0 {
		return
	}
	if len(s.partial)+len(b) > MaxLineSize {
		s.partial = s.partial[:0]
		s.overflow = true
		return
	}
	s.partial = append(s.partial, b...)
}

// complete joins the held bytes with the final piece b of a line.
func (s *splitter) complete(b []byte) ([]byte, bool) {
	if !s.overflow && len(s.partial) == 0 {
		return b, len(b) > MaxLineSize
	}
	s.hold(b)
	if s.overflow {
		s.overflow = false
		return nil, true
	}
	line := s.partial
	s.partial = s.partial[:0]
	return line, false
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}
