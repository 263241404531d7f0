// Package dedup finds redundant copies of the same content and decides which
// copy survives.
//
// Resolution runs in three passes: size pre-grouping (files with unique sizes
// cannot be duplicates and are never opened), content hashing over a bounded
// worker pool, and byte-for-byte verification. Files above the configured
// size ceiling are hashed from a head+tail sample, so sampled groups are
// always verified before any member is marked redundant; a verification
// mismatch means "not a duplicate" and the file is kept.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/classify"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/config"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
)

// hashCacheSize bounds the per-process hash cache. Entries are keyed by
// (path, size, mtime) so a touched file is rehashed.
const hashCacheSize = 8192

// Group is a set of files sharing identical content. Retained survives;
// every member of Redundant is recategorized duplicate by Resolve.
type Group struct {
	Hash      uint64
	Size      int64
	Retained  safety.Scored
	Redundant []safety.Scored
}

// cacheKey identifies one hashed file state.
type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

type cacheVal struct {
	sum     uint64
	sampled bool
}

// Resolver groups files by content and applies the retention policy.
type Resolver struct {
	keep    string
	ceiling int64
	verify  bool
	workers int
	cache   *lru.Cache[cacheKey, cacheVal]
}

// NewResolver returns a Resolver configured from cfg.
func NewResolver(cfg *config.Config) (*Resolver, error) {
	cache, err := lru.New[cacheKey, cacheVal](hashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash cache: %w", err)
	}
	return &Resolver{
		keep:    cfg.DuplicateKeep,
		ceiling: cfg.HashCeilingBytes(),
		verify:  cfg.VerifyDuplicates,
		workers: cfg.WorkerCount(),
		cache:   cache,
	}, nil
}

// Resolve groups the given records by content and returns every group with
// at least one redundant member. Dangerous, protected and in-use records are
// never considered. The input is not mutated; redundant members are returned
// re-tagged with category duplicate and a safety level no looser than their
// original one.
func (r *Resolver) Resolve(ctx context.Context, records []safety.Scored, tracker *progress.Tracker) ([]Group, error) {
	bySize := make(map[int64][]safety.Scored)
	for _, rec := range records {
		if rec.Level == safety.Dangerous || rec.Protected || rec.InUse {
			continue
		}
		if rec.Size == 0 {
			// Empty files are trivially identical and worthless to back
			// up; deleting them frees nothing, so leave them alone.
			continue
		}
		bySize[rec.Size] = append(bySize[rec.Size], rec)
	}

	var toHash []safety.Scored
	for _, recs := range bySize {
		if len(recs) >= 2 {
			toHash = append(toHash, recs...)
		}
	}
	if len(toHash) == 0 {
		return nil, nil
	}

	results, err := r.hashAll(ctx, toHash, tracker)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		size int64
		sum  uint64
	}
	grouped := make(map[groupKey][]hashResult)
	for _, res := range results {
		if res.err != nil {
			// Unreadable files fail safe toward being kept.
			continue
		}
		key := groupKey{size: res.rec.Size, sum: res.sum}
		grouped[key] = append(grouped[key], res)
	}

	var groups []Group
	for key, members := range grouped {
		if len(members) < 2 {
			continue
		}
		for _, verified := range r.verifyGroup(members) {
			if len(verified) < 2 {
				continue
			}
			groups = append(groups, r.buildGroup(key.sum, key.size, verified))
		}
	}

	// Deterministic output order regardless of map iteration.
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Retained.Path < groups[j].Retained.Path
	})
	return groups, nil
}

// hashAll pushes every record through the hash pool, consulting the cache
// first.
func (r *Resolver) hashAll(ctx context.Context, records []safety.Scored, tracker *progress.Tracker) ([]hashResult, error) {
	results := make([]hashResult, 0, len(records))

	var misses []safety.Scored
	for _, rec := range records {
		key := cacheKey{path: rec.Path, size: rec.Size, modTime: rec.ModTime.UnixNano()}
		if val, ok := r.cache.Get(key); ok {
			results = append(results, hashResult{rec: rec, sum: val.sum, sampled: val.sampled})
			continue
		}
		misses = append(misses, rec)
	}
	if len(misses) == 0 {
		return results, nil
	}

	pool, err := newHashPool(ctx, r.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to start hash pool: %w", err)
	}

	go func() {
		for _, rec := range misses {
			pool.submit(hashTask{rec: rec, ceiling: r.ceiling})
		}
		pool.close()
	}()

	total := int64(len(records))
	done := int64(len(results))
	started := time.Now()
	for res := range pool.results {
		done++
		tracker.Publish(progress.Event{
			Stage:       progress.StageHash,
			Done:        done,
			Total:       total,
			CurrentItem: res.rec.Path,
		})
		if res.err == nil {
			key := cacheKey{path: res.rec.Path, size: res.rec.Size, modTime: res.rec.ModTime.UnixNano()}
			r.cache.Add(key, cacheVal{sum: res.sum, sampled: res.sampled})
		}
		results = append(results, res)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracker.Publish(progress.Event{
		Stage:     progress.StageHash,
		Done:      done,
		Total:     total,
		Completed: true,
	})
	logging.L().Debug().
		Int("hashed", len(misses)).
		Int("cached", len(records)-len(misses)).
		Dur("took", time.Since(started)).
		Msg("duplicate hashing finished")
	return results, nil
}

// verifyGroup splits a hash group into sub-groups of byte-identical files.
// Verification always runs for sampled hashes; full hashes skip it only when
// verification is disabled in the config.
func (r *Resolver) verifyGroup(members []hashResult) [][]safety.Scored {
	sampled := false
	for _, m := range members {
		if m.sampled {
			sampled = true
			break
		}
	}
	if !r.verify && !sampled {
		recs := make([]safety.Scored, len(members))
		for i, m := range members {
			recs[i] = m.rec
		}
		return [][]safety.Scored{recs}
	}

	// Compare each member against the representative of every existing
	// sub-group; hash collisions surface here as extra sub-groups.
	var subs [][]safety.Scored
next:
	for _, m := range members {
		for i, sub := range subs {
			if sameContent(sub[0].Path, m.rec.Path) {
				subs[i] = append(subs[i], m.rec)
				continue next
			}
		}
		subs = append(subs, []safety.Scored{m.rec})
	}
	if len(subs) > 1 {
		logging.L().Warn().
			Str("path", members[0].rec.Path).
			Int("groups", len(subs)).
			Msg("hash collision split during verification")
	}
	return subs
}

// buildGroup picks the retained member per policy and re-tags the rest.
func (r *Resolver) buildGroup(sum uint64, size int64, members []safety.Scored) Group {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		switch r.keep {
		case config.KeepOldest:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
		case config.KeepShortestPath:
			if len(a.Path) != len(b.Path) {
				return len(a.Path) < len(b.Path)
			}
		default: // KeepNewest
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
		}
		return a.Path < b.Path
	})

	g := Group{Hash: sum, Size: size, Retained: members[0]}
	for _, rec := range members[1:] {
		rec.Category = classify.CategoryDuplicate
		rec.Rule = "duplicate-of:" + g.Retained.Path
		rec.Level = safety.Stricter(rec.Level, safety.Safe)
		g.Redundant = append(g.Redundant, rec)
	}
	return g
}
