// Package source opens log inputs: local files, cloud objects and
// compressed variants of either, and turns them into lazy line streams.
//
// Locations are plain paths or URLs:
//
//	/var/log/app.log
//	s3://bucket/key
//	gs://bucket/object
//	azblob://container/blob
//
// A ".gz", ".zst" or ".br" suffix selects transparent decompression.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"logsift/internal/logging"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
	ErrBadLocation       = errors.New("malformed location")
)

// Opener opens locations. The zero value is not usable; use NewOpener.
type Opener struct {
	remote RemoteConfig
	logger *slog.Logger
}

// NewOpener creates an opener. A nil logger discards output.
func NewOpener(remote RemoteConfig, logger *slog.Logger) *Opener {
	logger = logging.Default(logger)
	return &Opener{remote: remote, logger: logger.With("component", "source")}
}

// Open returns a reader over the decompressed content at location.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	scheme, rest, isURL := strings.Cut(location, "://")
	if !isURL {
		rc, err = os.Open(filepath.Clean(location))
	} else {
		rc, err = o.openRemote(ctx, strings.ToLower(scheme), rest)
	}
	if err != nil {
		return nil, err
	}

	dec, err := Decompress(location, rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return dec, nil
}

// IsRemote reports whether location names a cloud object.
func IsRemote(location string) bool {
	scheme, _, ok := strings.Cut(location, "://")
	if !ok {
		return false
	}
	switch strings.ToLower(scheme) {
	case "s3", "gs", "azblob":
		return true
	}
	return false
}

// Decompress wraps rc according to the suffix of name. Closing the result
// closes rc.
func Decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil

	case ".zst", ".zstd":
		zr, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(1<<30))
		if err != nil {
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), rc}}, nil

	case ".br":
		return &stackedCloser{Reader: brotli.NewReader(rc), closers: []io.Closer{rc}}, nil

	default:
		return rc, nil
	}
}

// TrimCompression strips a compression suffix so the inner extension can
// be inspected (app.jsonl.gz -> app.jsonl).
func TrimCompression(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip", ".zst", ".zstd", ".br":
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// stackedCloser closes decoder layers outermost first.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
