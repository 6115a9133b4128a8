package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pathLocker serializes writers of the same output file. Entries are
// reference counted so a waiter never ends up on a mutex that was dropped
// from the map.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*refMutex)}
}

func (pl *pathLocker) Lock(path string) {
	pl.mu.Lock()
	l := pl.locks[path]
	if l == nil {
		l = &refMutex{}
		pl.locks[path] = l
	}
	l.refs++
	pl.mu.Unlock()
	l.Lock()
}

func (pl *pathLocker) Unlock(path string) {
	pl.mu.Lock()
	l := pl.locks[path]
	if l == nil {
		pl.mu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()
	l.Unlock()
}

// debouncer waits for a file to go quiet before converting it; image
// editors and copy tools tend to emit several writes per save.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	quiet   time.Duration
	fire    func(path string)
	stopped bool
}

func newDebouncer(quiet time.Duration, fire func(path string)) *debouncer {
	return &debouncer{
		pending: make(map[string]*time.Timer),
		quiet:   quiet,
		fire:    fire,
	}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t := d.pending[path]; t != nil {
		t.Reset(d.quiet)
		return
	}
	d.pending[path] = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		delete(d.pending, path)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fire(path)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, t := range d.pending {
		t.Stop()
		delete(d.pending, path)
	}
}

func runWatchMode(conv *converter) error {
	cfg := conv.cfg
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range cfg.Watch.InputDirs() {
		if err := watchRecursive(w, dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		fmt.Printf("Watching: %s\n", dir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	outLock := newPathLocker()

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup

	db := newDebouncer(500*time.Millisecond, func(path string) {
		j := classifyEvent(path, cfg)
		if j == nil {
			return
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			outLock.Lock(j.output)
			defer outLock.Unlock(j.output)
			if recheck := classifyEvent(path, cfg); recheck == nil {
				return
			}
			convertJob(conv, *j)
		}()
	})
	defer db.stop()

	initialScan(conv, outLock)

	fmt.Println("Daemon ready. Waiting for file changes...")

	// Polling fallback for network/virtual filesystems where inotify/kqueue don't fire
	go pollLoop(ctx, cfg, cfg.Watch.PollDuration(), func(path string) {
		db.trigger(path)
	}, func(path string) {
		handleDeletion(path, cfg)
	})

	eventLoop(ctx, w, db, cfg)

	fmt.Println("Waiting for in-flight conversions...")
	wg.Wait()
	fmt.Println("Shutdown complete.")
	return nil
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// initialScan converts stale sources in watched directories.
// Jobs are deduplicated by output path to prevent concurrent writes.
func initialScan(conv *converter, outLock *pathLocker) {
	cfg := conv.cfg
	syncOrphanedOutputs(cfg)

	jobs := make(map[string]convJob)

	for _, dir := range cfg.Watch.InputDirs() {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isSourceImage(path) {
				return nil
			}
			if j := classifyEvent(path, cfg); j != nil {
				jobs[j.output] = *j
			}
			return nil
		})
	}

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			outLock.Lock(j.output)
			defer outLock.Unlock(j.output)
			convertJob(conv, j)
		}()
	}
	wg.Wait()
}

func eventLoop(ctx context.Context, w *fsnotify.Watcher, db *debouncer, cfg *Config) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) {
				if isSourceImage(ev.Name) {
					handleDeletion(ev.Name, cfg)
				}
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					watchRecursive(w, ev.Name)
					continue
				}
			}
			// Atomic file replacement: verify the renamed path still exists
			// and re-add the parent for inode tracking.
			if ev.Has(fsnotify.Rename) {
				if _, err := os.Stat(ev.Name); err != nil {
					if isSourceImage(ev.Name) {
						handleDeletion(ev.Name, cfg)
					}
					continue
				}
				w.Add(filepath.Dir(ev.Name))
			}
			db.trigger(ev.Name)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}

// pollLoop walks input directories at a fixed interval to detect mtime changes
// on network/virtual filesystems.
func pollLoop(ctx context.Context, cfg *Config, interval time.Duration, onChanged func(path string), onDeleted func(path string)) {
	mtimes := make(map[string]time.Time)
	prevSources := make(map[string]bool)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sources := make(map[string]bool)
		for _, dir := range cfg.Watch.InputDirs() {
			filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() || !isSourceImage(path) {
					return nil
				}
				sources[path] = true
				info, err := d.Info()
				if err != nil {
					return nil
				}
				mt := info.ModTime()
				if prev, ok := mtimes[path]; !ok || !mt.Equal(prev) {
					mtimes[path] = mt
					onChanged(path)
				}
				return nil
			})
		}

		for path := range prevSources {
			if !sources[path] {
				onDeleted(path)
			}
		}
		prevSources = sources

		for path := range sources {
			out := outputPathForSource(path, cfg)
			if out == "" {
				continue
			}
			if _, err := os.Stat(out); err != nil {
				onChanged(path)
			}
		}

		for path := range mtimes {
			if !sources[path] {
				delete(mtimes, path)
			}
		}
	}
}

func classifyEvent(path string, cfg *Config) *convJob {
	if !isSourceImage(path) {
		return nil
	}
	out := outputPathForSource(path, cfg)
	if out == "" || isUpToDate(path, out) {
		return nil
	}
	if srcs := sourcesFor(out, cfg); len(srcs) > 1 {
		fmt.Fprintf(os.Stderr, "Warning: %d sources map to '%s' (%s); the last one converted wins\n",
			len(srcs), filepath.Base(out), strings.Join(baseNames(srcs), ", "))
	}
	return &convJob{input: path, output: out}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func convertJob(conv *converter, j convJob) {
	if dir := filepath.Dir(j.output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory '%s': %v\n", dir, err)
			return
		}
	}

	start := time.Now()
	if err := conv.convert(j.input, j.output); err != nil {
		fmt.Fprintf(os.Stderr, "Error converting '%s': %v\n", j.input, err)
		return
	}
	fmt.Printf("Converted '%s' -> '%s' (%.2fs)\n", filepath.Base(j.input), filepath.Base(j.output), time.Since(start).Seconds())
}

func sourceDir(path string, cfg *Config) string {
	for _, dir := range cfg.Watch.InputDirs() {
		if isUnderDir(path, dir) {
			return dir
		}
	}
	return ""
}

func outputPath(path, srcDir, outDir, newExt string) string {
	rel, _ := filepath.Rel(srcDir, path)
	return filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+newExt)
}

func isUnderDir(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator)) || absPath == absDir
}

// outputPathForSource maps a watched source image to its .tpf output, or ""
// when the path is not under a watched directory.
func outputPathForSource(path string, cfg *Config) string {
	srcDir := sourceDir(path, cfg)
	if srcDir == "" {
		return ""
	}
	return outputPath(path, srcDir, cfg.Watch.Location, ".tpf")
}

// handleDeletion removes the output for a deleted source image and cleans
// up empty parent directories up to the output root. Another source with
// the same base name keeps the output alive.
func handleDeletion(path string, cfg *Config) {
	out := outputPathForSource(path, cfg)
	if out == "" {
		return
	}
	if _, err := os.Stat(out); err != nil {
		return
	}
	if hasSourceFile(out, cfg) {
		return
	}
	if err := os.Remove(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error removing output '%s': %v\n", out, err)
		return
	}
	fmt.Printf("Removed output '%s' (source deleted)\n", filepath.Base(out))
	removeEmptyParents(filepath.Dir(out), cfg.Watch.Location)
}

func removeEmptyParents(dir, stopDir string) {
	absStop, err := filepath.Abs(stopDir)
	if err != nil {
		return
	}
	for {
		absDir, err := filepath.Abs(dir)
		if err != nil || absDir == absStop {
			return
		}
		if !strings.HasPrefix(absDir, absStop+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func syncOrphanedOutputs(cfg *Config) {
	outDir := cfg.Watch.Location
	if outDir == "" {
		return
	}
	filepath.WalkDir(outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isTPF(path) {
			return nil
		}
		if !hasSourceFile(path, cfg) {
			if err := os.Remove(path); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing orphaned output '%s': %v\n", path, err)
			} else {
				fmt.Printf("Removed orphaned output '%s'\n", filepath.Base(path))
				removeEmptyParents(filepath.Dir(path), outDir)
			}
		}
		return nil
	})
}

// hasSourceFile reports whether any watched directory still holds an image
// that maps to outputTPF.
func hasSourceFile(outputTPF string, cfg *Config) bool {
	return len(sourcesFor(outputTPF, cfg)) > 0
}

// sourcesFor lists the images in the watched directories that map to
// outputTPF. Extensions match case-insensitively, like isSourceImage.
func sourcesFor(outputTPF string, cfg *Config) []string {
	rel, err := filepath.Rel(cfg.Watch.Location, outputTPF)
	if err != nil {
		return nil
	}
	relDir, name := filepath.Split(rel)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	var found []string
	for _, dir := range cfg.Watch.InputDirs() {
		entries, err := os.ReadDir(filepath.Join(dir, relDir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			n := e.Name()
			if e.IsDir() || !isSourceImage(n) || strings.TrimSuffix(n, filepath.Ext(n)) != base {
				continue
			}
			found = append(found, filepath.Join(dir, relDir, n))
		}
	}
	return found
}
