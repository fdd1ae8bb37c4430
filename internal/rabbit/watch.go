package rabbit

import (
	"context"
	"iter"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often Watch rescans the directory in case
// filesystem notifications were missed.
const DefaultPollInterval = 5 * time.Second

// Watch yields every message in dir once, then keeps running and yields a
// message again whenever its files change its status or paths (a headers
// file arriving turns Partial into Complete). Removed messages are
// forgotten silently. The sequence ends without error when ctx is done.
func (d *Detector) Watch(ctx context.Context, dir string) iter.Seq2[PairedFile, error] {
	return func(yield func(PairedFile, error) bool) {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			yield(PairedFile{}, err)
			return
		}
		defer func() { _ = watcher.Close() }()

		if err := watcher.Add(dir); err != nil {
			yield(PairedFile{}, err)
			return
		}

		pairs, err := d.detect(ctx, dir)
		if err != nil {
			yield(PairedFile{}, err)
			return
		}
		known := make(map[string]PairedFile, len(pairs))
		for _, pf := range pairs {
			known[pf.MessageID] = pf
			if !yield(pf, nil) {
				return
			}
		}
		d.logger.Info("watching directory", "dir", dir, "messages", len(known))

		var tickCh <-chan time.Time
		if d.pollInterval > 0 {
			ticker := time.NewTicker(d.pollInterval)
			defer ticker.Stop()
			tickCh = ticker.C
		}

		// emit re-resolves id and yields it when it changed.
		emit := func(id string) bool {
			pf, ok := d.resolve(dir, id)
			if !ok {
				delete(known, id)
				return true
			}
			if prev, seen := known[id]; seen && sameFiles(prev, pf) {
				return true
			}
			known[id] = pf
			return yield(pf, nil)
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				role, id := classify(filepath.Base(event.Name))
				if role == roleNone {
					continue
				}
				if !emit(id) {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Warn("fsnotify error", "dir", dir, "error", err)

			case <-tickCh:
				pairs, err := d.detect(ctx, dir)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					d.logger.Warn("rescan failed", "dir", dir, "error", err)
					continue
				}
				present := make(map[string]bool, len(pairs))
				for _, pf := range pairs {
					present[pf.MessageID] = true
					if prev, seen := known[pf.MessageID]; seen && sameFiles(prev, pf) {
						continue
					}
					known[pf.MessageID] = pf
					if !yield(pf, nil) {
						return
					}
				}
				for id := range known {
					if !present[id] {
						delete(known, id)
					}
				}
			}
		}
	}
}

func sameFiles(a, b PairedFile) bool {
	return a.Status == b.Status && a.MainPath == b.MainPath && a.HeadersPath == b.HeadersPath
}
