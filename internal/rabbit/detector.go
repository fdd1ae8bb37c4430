package rabbit

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"logsift/internal/logging"
)

// Detector finds message files in a directory and pairs them by id.
type Detector struct {
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration

	// Per-file warnings in a large directory are sampled.
	warnSample *rate.Sometimes
}

// Option configures a Detector.
type Option func(*Detector)

// WithPollInterval sets the Watch rescan interval. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(det *Detector) { det.pollInterval = d }
}

// WithWorkers bounds the number of files sniffed concurrently.
func WithWorkers(n int) Option {
	return func(det *Detector) {
		if n > 0 {
			det.workers = n
		}
	}
}

// NewDetector creates a detector. A nil logger discards output.
func NewDetector(logger *slog.Logger, opts ...Option) *Detector {
	logger = logging.Default(logger)
	d := &Detector{
		logger:       logger.With("component", "rabbit-detector"),
		workers:      runtime.GOMAXPROCS(0),
		pollInterval: DefaultPollInterval,
		warnSample:   &rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// scanned is one worker's result for one directory entry.
type scanned struct {
	role    fileRole
	id      string
	path    string
	unified bool
	err     error
}

// DetectPairedFiles lists dir and yields one PairedFile per message id,
// ordered by id. Files are sniffed in parallel; pairing happens afterwards
// on the calling goroutine. A directory that cannot be listed, or a
// cancelled context, ends the sequence with an error. Unreadable main
// files yield StatusFailed entries and never abort the scan.
func (d *Detector) DetectPairedFiles(ctx context.Context, dir string) iter.Seq2[PairedFile, error] {
	return func(yield func(PairedFile, error) bool) {
		start := time.Now()
		pairs, err := d.detect(ctx, dir)
		if err != nil {
			yield(PairedFile{}, err)
			return
		}
		failed := 0
		for _, pf := range pairs {
			if pf.Status == StatusFailed {
				failed++
			}
		}
		attrs := []any{"dir", dir, "messages", len(pairs), "failed", failed, "elapsed", time.Since(start)}
		if failed > 0 {
			d.logger.Warn("scan finished", attrs...)
		} else {
			d.logger.Debug("scan finished", attrs...)
		}

		for _, pf := range pairs {
			if err := ctx.Err(); err != nil {
				yield(PairedFile{}, err)
				return
			}
			if !yield(pf, nil) {
				return
			}
		}
	}
}

// FindPairedFile resolves the message that mainPath belongs to.
func (d *Detector) FindPairedFile(ctx context.Context, mainPath string) (PairedFile, error) {
	if err := ctx.Err(); err != nil {
		return PairedFile{}, err
	}
	role, id := classify(filepath.Base(mainPath))
	if role != roleMain {
		return PairedFile{}, fmt.Errorf("%s: %w", mainPath, ErrNotMainFile)
	}
	if _, err := os.Stat(mainPath); err != nil {
		return PairedFile{}, err
	}

	main := d.sniff(scanned{role: roleMain, id: id, path: mainPath})
	var headers *scanned
	hp := headersPathFor(filepath.Dir(mainPath), id)
	if info, err := os.Stat(hp); err == nil && info.Mode().IsRegular() {
		headers = &scanned{role: roleHeaders, id: id, path: hp}
	}
	return pair(id, &main, headers), nil
}

// resolve re-reads the files of one id from disk.
func (d *Detector) resolve(dir, id string) (PairedFile, bool) {
	var main, headers *scanned
	for _, p := range mainCandidates(dir, id) {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			s := d.sniff(scanned{role: roleMain, id: id, path: p})
			main = &s
			break
		}
	}
	hp := headersPathFor(dir, id)
	if info, err := os.Stat(hp); err == nil && info.Mode().IsRegular() {
		headers = &scanned{role: roleHeaders, id: id, path: hp}
	}
	if main == nil && headers == nil {
		return PairedFile{}, false
	}
	return pair(id, main, headers), true
}

func (d *Detector) detect(ctx context.Context, dir string) ([]PairedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var candidates []fs.DirEntry
	for _, e := range entries {
		if e.Type().IsRegular() && isMessageFile(e.Name()) {
			candidates = append(candidates, e)
		}
	}

	// Each worker owns one slot; no locking needed.
	slots := make([]scanned, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, e := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			role, id := classify(e.Name())
			s := scanned{role: role, id: id, path: filepath.Join(dir, e.Name())}
			if role == roleMain {
				s = d.sniff(s)
			}
			slots[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Two independent maps, merged afterwards.
	mains := make(map[string]*scanned)
	headers := make(map[string]*scanned)
	for i := range slots {
		s := &slots[i]
		switch s.role {
		case roleMain:
			if _, dup := mains[s.id]; !dup {
				mains[s.id] = s
			}
		case roleHeaders:
			headers[s.id] = s
		}
	}

	ids := make([]string, 0, len(mains)+len(headers))
	for id := range mains {
		ids = append(ids, id)
	}
	for id := range headers {
		if _, ok := mains[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]PairedFile, 0, len(ids))
	for _, id := range ids {
		pf := pair(id, mains[id], headers[id])
		if pf.Status == StatusFailed {
			d.warn("skipping unreadable message", "id", id, "path", pf.MainPath, "error", pf.Err)
		}
		out = append(out, pf)
	}
	return out, nil
}

// sniff reads a main file and records whether it parses and whether it
// carries a unified envelope.
func (d *Detector) sniff(s scanned) scanned {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.err = err
		return s
	}
	env, err := ParseEnvelope(data)
	if err != nil {
		s.err = err
		return s
	}
	s.unified = env.IsUnified()
	return s
}

// pair merges the two halves of one id into a PairedFile.
func pair(id string, main, headers *scanned) PairedFile {
	pf := PairedFile{MessageID: id}
	if headers != nil {
		pf.HeadersPath = headers.path
	}
	if main == nil {
		pf.Status = StatusPartial
		return pf
	}

	pf.MainPath = main.path
	switch {
	case main.err != nil:
		pf.Status = StatusFailed
		pf.Err = main.err
	case headers != nil:
		pf.Status = StatusComplete
	case main.unified:
		pf.Status = StatusUnifiedJSON
	default:
		pf.Status = StatusPartial
	}
	return pf
}

func (d *Detector) warn(msg string, args ...any) {
	d.warnSample.Do(func() {
		d.logger.Warn(msg, args...)
	})
}
