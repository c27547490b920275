package fscache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// batchQueue bounds how many invalidation batches may wait for the applier.
const batchQueue = 16

// Start begins sweeping and watching root. Only the first call does any work;
// later calls return the first call's result whatever root they pass.
//
// If the watcher cannot be set up the cache disables itself (Get always
// misses, Insert is a no-op) and the error is returned.
func (c *Cache) Start(root string) error {
	c.startOnce.Do(func() {
		c.startErr = c.start(root)
		if c.startErr != nil {
			c.mu.Lock()
			c.disabled = true
			c.entries = make(map[Key]*entry)
			c.mu.Unlock()
			c.logger.Warn("content cache disabled", "root", root, "error", c.startErr)
		}
	})
	return c.startErr
}

func (c *Cache) start(root string) error {
	canon, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %q: %w", root, err)
	}
	if canon, err = filepath.EvalSymlinks(canon); err != nil {
		return fmt.Errorf("resolve root %q: %w", root, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(w, canon); err != nil {
		w.Close()
		return fmt.Errorf("watch %q: %w", canon, err)
	}
	c.root = canon

	batches := make(chan []string, batchQueue)
	c.wg.Add(3)
	go c.sweep()
	go c.watch(w, batches)
	go c.apply(batches)
	c.logger.Debug("content cache started", "root", canon, "lifespan", c.lifespan, "debounce", c.debounce)
	return nil
}

// Root returns the canonical root being watched, or "" before a successful Start.
func (c *Cache) Root() string { return c.root }

// Close stops the background goroutines and waits for them to exit.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return nil
}

func (c *Cache) sweep() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if n := c.RemoveExpired(c.lifespan); n > 0 {
				c.logger.Debug("expired cache entries", "count", n)
			}
		}
	}
}

// watch collects changed paths and flushes them one debounce window after the
// first event of a batch. A rename reports the old name as Rename and the new
// name as Create, so both become invalidation targets.
func (c *Cache) watch(w *fsnotify.Watcher, batches chan<- []string) {
	defer c.wg.Done()
	defer close(batches)
	defer w.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(c.debounce)
	timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		clear(pending)
		select {
		case batches <- batch:
		case <-c.done:
		}
	}

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				// New directories are not covered by existing watches.
				if err := addTree(w, ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					c.logger.Warn("watch new directory", "path", ev.Name, "error", err)
				}
			}
			if len(pending) == 0 {
				timer.Reset(c.debounce)
			}
			pending[ev.Name] = struct{}{}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn("filesystem watcher", "error", err)
		case <-timer.C:
			flush()
		}
	}
}

func (c *Cache) apply(batches <-chan []string) {
	defer c.wg.Done()
	for batch := range batches {
		if n := c.RemoveChanged(batch); n > 0 {
			c.logger.Debug("invalidated cache entries", "count", n, "paths", len(batch))
		}
	}
}

// addTree watches dir and every directory beneath it. Files are skipped;
// fsnotify reports their changes through the parent directory's watch.
func addTree(w *fsnotify.Watcher, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
