// Package scanner enumerates regular files under configured scan roots.
//
// The enumerator walks directories concurrently with a bounded number of
// in-flight directory reads, never follows symbolic links, and reports
// unreadable directories as soft warnings instead of failing the scan.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

// maxWarnings caps the number of retained walk warnings so a scan over a
// badly permissioned tree cannot grow memory without bound.
const maxWarnings = 500

// Options configures an Enumerator.
type Options struct {
	// MinSize drops files smaller than this many bytes. Zero keeps all.
	MinSize int64

	// MinAge drops files modified more recently than this. Zero keeps
	// all. Freshly written files are usually still wanted by whatever
	// wrote them, so callers typically pass at least a day here.
	MinAge time.Duration

	// MaxDepth limits how many directory levels below each root are
	// entered. Zero means unlimited; 1 walks only the root itself.
	MaxDepth int

	// ExcludedExtensions drops files whose extension matches, compared
	// case-insensitively. Entries may be given with or without the dot.
	ExcludedExtensions []string

	// Concurrency bounds the number of directory reads in flight.
	// Zero falls back to the number of CPUs.
	Concurrency int
}

// Enumerator walks scan roots and streams matching files over a channel.
// A single Enumerator may be reused; each Enumerate call resets counters
// and warnings.
type Enumerator struct {
	opts     Options
	excluded map[string]struct{}
	sem      chan struct{}

	mu       sync.Mutex
	warnings []string

	emitted atomic.Int64
	skipped atomic.Int64
}

// New returns an Enumerator for the given options.
func New(opts Options) *Enumerator {
	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedExtensions))
	for _, ext := range opts.ExcludedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		excluded[ext] = struct{}{}
	}
	return &Enumerator{
		opts:     opts,
		excluded: excluded,
		sem:      make(chan struct{}, workers),
	}
}

// Enumerate walks the given roots and returns a channel of matching files.
// The channel is closed once all roots have been walked or the context is
// cancelled. Roots that cannot be read are recorded as warnings.
func (e *Enumerator) Enumerate(ctx context.Context, roots []string) <-chan FileRecord {
	e.mu.Lock()
	e.warnings = nil
	e.mu.Unlock()
	e.emitted.Store(0)
	e.skipped.Store(0)

	out := make(chan FileRecord, 256)
	var wg sync.WaitGroup
	for _, root := range roots {
		root := filepath.Clean(root)
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := os.Lstat(root)
			if err != nil {
				e.addWarning(fmt.Sprintf("failed to stat root %s: %v", root, err))
				return
			}
			if !info.IsDir() {
				e.emitFile(ctx, root, root, info, out)
				return
			}
			e.walkDir(ctx, root, root, 1, out)
		}()
	}
	go func() {
		wg.Wait()
		close(out)
		logging.L().Debug().
			Int64("emitted", e.emitted.Load()).
			Int64("skipped", e.skipped.Load()).
			Msg("enumeration finished")
	}()
	return out
}

// Warnings returns a copy of the soft warnings recorded by the last
// Enumerate call.
func (e *Enumerator) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.warnings...)
}

// Emitted reports how many files the last Enumerate call sent.
func (e *Enumerator) Emitted() int64 {
	return e.emitted.Load()
}

// Skipped reports how many files were dropped by size or extension filters.
func (e *Enumerator) Skipped() int64 {
	return e.skipped.Load()
}

// walkDir reads one directory and recurses into subdirectories, each in its
// own goroutine. The semaphore is held only for the directory read itself so
// deep trees do not deadlock the walker pool.
func (e *Enumerator) walkDir(ctx context.Context, root, dir string, depth int, out chan<- FileRecord) {
	if ctx.Err() != nil {
		return
	}

	e.sem <- struct{}{}
	entries, err := os.ReadDir(dir)
	<-e.sem

	if err != nil {
		e.addWarning(fmt.Sprintf("failed to read %s: %v", dir, err))
		return
	}

	var wg sync.WaitGroup
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if e.opts.MaxDepth > 0 && depth >= e.opts.MaxDepth {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.walkDir(ctx, root, path, depth+1, out)
			}()
			continue
		}
		// Symlinks are never followed. Deleting through a link would
		// touch a target that may live outside the scan root, and
		// os.ReadDir already reports link targets with link semantics,
		// so skipping here keeps every emitted path a real file under
		// the root.
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			e.addWarning(fmt.Sprintf("failed to stat %s: %v", path, err))
			continue
		}
		e.emitFile(ctx, root, path, info, out)
	}
	wg.Wait()
}

// emitFile applies the size and extension filters and sends the record.
func (e *Enumerator) emitFile(ctx context.Context, root, path string, info os.FileInfo, out chan<- FileRecord) {
	if !info.Mode().IsRegular() {
		return
	}
	if e.opts.MinSize > 0 && info.Size() < e.opts.MinSize {
		e.skipped.Add(1)
		return
	}
	if e.opts.MinAge > 0 && time.Since(info.ModTime()) < e.opts.MinAge {
		e.skipped.Add(1)
		return
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := e.excluded[ext]; ok {
		e.skipped.Add(1)
		return
	}

	rec := FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Ext:     ext,
		Root:    root,
	}
	select {
	case out <- rec:
		e.emitted.Add(1)
	case <-ctx.Done():
	}
}

func (e *Enumerator) addWarning(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.warnings) >= maxWarnings {
		return
	}
	e.warnings = append(e.warnings, msg)
}
