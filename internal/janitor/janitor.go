// Package janitor expires converted artifacts that were never downloaded.
// Delivery deletes an output right after its stream closes; the janitor
// is the backstop for outputs whose download never came.
package janitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filewarp/filewarp/internal/cleanup"
)

type Janitor struct {
	dir      string
	ttl      time.Duration
	interval time.Duration
	cleaner  *cleanup.Cleaner
	w        *fsnotify.Watcher

	mu   sync.Mutex
	seen map[string]time.Time // path -> first observed
}

func New(dir string, ttl, interval time.Duration, cleaner *cleanup.Cleaner) (*Janitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Janitor{
		dir:      dir,
		ttl:      ttl,
		interval: interval,
		cleaner:  cleaner,
		w:        w,
		seen:     map[string]time.Time{},
	}, nil
}

// Start watches the output directory and sweeps expired artifacts until
// ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	if err := j.w.Add(j.dir); err != nil {
		return err
	}
	j.scan()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-j.w.Events:
			j.handleEvent(ev)
		case err := <-j.w.Errors:
			log.Printf("janitor watcher error: %v", err)
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) Close() error { return j.w.Close() }

func (j *Janitor) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		fi, err := os.Stat(ev.Name)
		if err != nil || fi.IsDir() {
			return
		}
		j.mu.Lock()
		j.seen[ev.Name] = time.Now()
		j.mu.Unlock()
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		j.mu.Lock()
		delete(j.seen, ev.Name)
		j.mu.Unlock()
	}
}

// scan picks up artifacts left over from a previous run, dating them by
// modification time.
func (j *Janitor) scan() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		log.Printf("janitor scan: %v", err)
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if _, ok := j.seen[path]; !ok {
			j.seen[path] = info.ModTime()
		}
	}
}

// sweep hands every expired artifact to the cleanup service.
func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.ttl)

	j.mu.Lock()
	var expired []string
	for path, born := range j.seen {
		if born.Before(cutoff) {
			expired = append(expired, path)
			delete(j.seen, path)
		}
	}
	j.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	log.Printf("janitor: expiring %d undownloaded artifact(s)", len(expired))
	j.cleaner.Clean(expired...)
}

// Sweep runs one sweep cycle immediately. Exposed for tests.
func (j *Janitor) Sweep() { j.sweep() }

// Scan runs one directory scan immediately. Exposed for tests.
func (j *Janitor) Scan() { j.scan() }
