// Package cleanup removes transient conversion artifacts. Callers never
// see an error: a path that cannot be deleted after the configured
// retries is logged and skipped.
package cleanup

import (
	"log"
	"os"
	"sync"
	"time"
)

type Cleaner struct {
	retries int
	delay   time.Duration
}

func New(retries int, delay time.Duration) *Cleaner {
	if retries < 1 {
		retries = 1
	}
	return &Cleaner{retries: retries, delay: delay}
}

// Clean deletes the given paths concurrently and returns immediately.
// The returned wait function blocks until every deletion attempt has
// finished, for callers that need the filesystem quiesced.
func (c *Cleaner) Clean(paths ...string) (wait func()) {
	var wg sync.WaitGroup
	for _, p := range paths {
		if p == "" {
			continue
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			c.remove(path)
		}(p)
	}
	return wg.Wait
}

// CleanAndWait deletes the given paths and blocks until done.
func (c *Cleaner) CleanAndWait(paths ...string) {
	c.Clean(paths...)()
}

func (c *Cleaner) remove(path string) {
	for attempt := 1; attempt <= c.retries; attempt++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		err := os.Remove(path)
		if err == nil {
			log.Printf("cleaned up file: %s", path)
			return
		}
		if attempt == c.retries {
			log.Printf("failed to clean up file after %d attempts: %s: %v", c.retries, path, err)
			return
		}
		time.Sleep(c.delay)
	}
}
