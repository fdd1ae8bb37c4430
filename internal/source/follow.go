package source

import (
	"bufio"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultFollowPoll is the fallback poll interval for Follow.
const DefaultFollowPoll = time.Second

// FollowOptions configures Follow.
type FollowOptions struct {
	// FromStart reads existing content first; otherwise following starts
	// at the current end of file.
	FromStart bool
	// PollInterval rereads the file even without notifications. Zero means
	// DefaultFollowPoll; negative disables polling.
	PollInterval time.Duration
}

// followed is the read state of the file being followed.
type followed struct {
	path    string
	file    *os.File
	inode   uint64
	offset  int64
	lineNo  int
	split   splitter
}

// Follow yields lines appended to a local file, like tail -f. Rotation
// (inode change) reopens the file from the start; truncation rewinds.
// A final line without a newline is held until it is completed. The
// sequence ends without error when ctx is done.
func (o *Opener) Follow(ctx context.Context, path string, opts FollowOptions) iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			yield(Line{}, err)
			return
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			yield(Line{}, err)
			return
		}
		tf := &followed{path: path, file: f}
		tf.inode, _ = inodeOf(info)
		if !opts.FromStart {
			tf.offset = info.Size()
		}
		defer func() { _ = tf.file.Close() }()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			yield(Line{}, err)
			return
		}
		defer func() { _ = watcher.Close() }()
		// Watch the directory so rotation (new inode) is seen.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			o.logger.Warn("failed to watch directory", "dir", filepath.Dir(path), "error", err)
		}

		poll := opts.PollInterval
		if poll == 0 {
			poll = DefaultFollowPoll
		}
		var tickCh <-chan time.Time
		if poll > 0 {
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			tickCh = ticker.C
		}

		o.logger.Debug("following file", "path", path, "offset", tf.offset)
		if !o.readNew(tf, yield) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if !o.readNew(tf, yield) {
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				o.logger.Warn("fsnotify error", "path", path, "error", err)
			case <-tickCh:
				if !o.readNew(tf, yield) {
					return
				}
			}
		}
	}
}

// readNew yields the complete lines appended since the last read. It
// returns false when the consumer stopped.
func (o *Opener) readNew(tf *followed, yield func(Line, error) bool) bool {
	info, err := os.Stat(tf.path)
	if err != nil {
		// Between rotation steps the path may briefly not exist.
		return true
	}

	if ino, ok := inodeOf(info); ok && tf.inode != 0 && ino != tf.inode {
		o.logger.Info("file rotated, reopening", "path", tf.path)
		nf, err := os.Open(tf.path)
		if err != nil {
			o.logger.Warn("failed to reopen after rotation", "path", tf.path, "error", err)
			return true
		}
		_ = tf.file.Close()
		tf.file = nf
		tf.inode = ino
		tf.offset = 0
		tf.split.reset()
	}

	if info.Size() < tf.offset {
		o.logger.Info("file truncated, rewinding", "path", tf.path)
		tf.offset = 0
		tf.split.reset()
	}
	if info.Size() == tf.offset {
		return true
	}

	if _, err := tf.file.Seek(tf.offset, io.SeekStart); err != nil {
		return yield(Line{}, err)
	}
	br := bufio.NewReaderSize(io.LimitReader(tf.file, info.Size()-tf.offset), readBufferSize)
	n, more, err := tf.split.read(br, func(text []byte, tooLong bool) bool {
		tf.lineNo++
		if tooLong {
			o.logger.Debug("skipping over-long line", "path", tf.path, "line", tf.lineNo)
			return true
		}
		text = trimCR(text)
		if len(text) == 0 {
			return true
		}
		return yield(Line{Path: tf.path, Number: tf.lineNo, Text: string(text)}, nil)
	})
	tf.offset += n
	if !more {
		return false
	}
	if err != nil {
		return yield(Line{}, err)
	}
	return true
}

func inodeOf(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Ino, true
}
