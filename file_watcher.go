package reflux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher emits a settings file's contents whenever they change.
// It watches the parent directory so editors that save by renaming a
// temporary file over the original are picked up too.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a FileWatcher for path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// Path returns the watched file path.
func (w *FileWatcher) Path() string {
	return w.path
}

var _ Source = (*FileWatcher)(nil)

// Watch emits the current contents, then the new contents after each write,
// create or rename touching the file. Empty reads and unchanged contents are
// skipped.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	target := filepath.Clean(w.path)

	initial, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", target, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch settings dir of %s: %w", target, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer fw.Close()

		last := initial
		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				data, err := os.ReadFile(target)
				// Truncation during a write shows up as an empty read.
				if err != nil || len(data) == 0 || bytes.Equal(data, last) {
					continue
				}
				last = data

				select {
				case out <- data:
				case <-ctx.Done():
					return
				}

			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
				// fsnotify errors are transient; keep watching.
			}
		}
	}()

	return out, nil
}
