package parser

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups the burst of events a single file save causes.
const DefaultWatchDebounce = 300 * time.Millisecond

// DirWatcher reports changes to the measurement files of one directory.
type DirWatcher struct {
	Dir string

	watcher  *fsnotify.Watcher
	onChange func(files []string)
	debounce time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// WatchDirectory starts watching dir. After measurement files were created,
// written, removed or renamed, onChange receives the new file listing once
// the events have been quiet for debounce.
func WatchDirectory(dir string, debounce time.Duration, onChange func(files []string)) (*DirWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	w := &DirWatcher{
		Dir:      dir,
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

func (w *DirWatcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevantOps != 0 && IsMeasurementFile(event.Name) {
				fire = time.After(w.debounce)
			}
		case <-fire:
			fire = nil
			files, err := ListMeasurementFiles(w.Dir)
			if err != nil {
				log.Printf("Watcher: %v", err)
				continue
			}
			w.onChange(files)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		case <-w.stop:
			return
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *DirWatcher) Close() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}
