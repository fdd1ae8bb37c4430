package rabbit

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"logsift/internal/logging"
	"logsift/internal/record"
)

// Reconstructor turns paired files into records.
type Reconstructor struct {
	detector   *Detector
	logger     *slog.Logger
	skipSample *rate.Sometimes
}

// NewReconstructor creates a reconstructor with its own detector.
func NewReconstructor(logger *slog.Logger, opts ...Option) *Reconstructor {
	logger = logging.Default(logger)
	return &Reconstructor{
		detector:   NewDetector(logger, opts...),
		logger:     logger.With("component", "rabbit-reconstructor"),
		skipSample: &rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// Detector returns the detector used by Records.
func (r *Reconstructor) Detector() *Detector { return r.detector }

// Reconstruct builds one record from pf. Fields absent from both files
// stay empty. Headers-only and failed messages cannot be reconstructed.
func (r *Reconstructor) Reconstruct(pf PairedFile) (*record.RabbitEntry, error) {
	switch {
	case pf.Status == StatusFailed:
		if pf.Err != nil {
			return nil, fmt.Errorf("message %s: %w: %w", pf.MessageID, ErrFailedPair, pf.Err)
		}
		return nil, fmt.Errorf("message %s: %w", pf.MessageID, ErrFailedPair)
	case pf.MainPath == "":
		return nil, fmt.Errorf("message %s: %w", pf.MessageID, ErrHeadersOnly)
	}

	main, mtime, err := readEnvelope(pf.MainPath)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", pf.MessageID, err)
	}

	entry := &record.RabbitEntry{File: pf.MainPath}
	main.Fill(entry)

	if pf.HeadersPath != "" {
		headers, _, err := readEnvelope(pf.HeadersPath)
		if err != nil {
			// The main file alone is still a usable record.
			r.logger.Debug("headers file unreadable", "id", pf.MessageID, "path", pf.HeadersPath, "error", err)
		} else {
			headers.Fill(entry)
		}
	}

	if entry.MessageID == "" {
		entry.MessageID = pf.MessageID
	}
	Finish(entry, mtime)
	return entry, nil
}

// Records detects the messages in dir and reconstructs each, in id order.
// Messages that cannot be reconstructed are logged and skipped. Listing
// failures and cancellation end the sequence with an error.
func (r *Reconstructor) Records(ctx context.Context, dir string) iter.Seq2[*record.RabbitEntry, error] {
	return func(yield func(*record.RabbitEntry, error) bool) {
		var built, skipped int
		defer func() {
			r.logger.Debug("directory reconstructed", "dir", dir, "records", built, "skipped", skipped)
		}()

		for pf, err := range r.detector.DetectPairedFiles(ctx, dir) {
			if err != nil {
				yield(nil, err)
				return
			}
			entry, err := r.Reconstruct(pf)
			if err != nil {
				skipped++
				r.skipSample.Do(func() {
					r.logger.Warn("skipping message", "id", pf.MessageID, "status", pf.Describe(), "error", err)
				})
				continue
			}
			built++
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func readEnvelope(path string) (*Envelope, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%s: %w", path, err)
	}
	var mtime time.Time
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime()
	}
	return env, mtime, nil
}
