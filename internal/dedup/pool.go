package dedup

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
)

// hashTask asks a worker to hash one candidate file.
type hashTask struct {
	rec     safety.Scored
	ceiling int64
}

// hashResult is what a worker produced for one file.
type hashResult struct {
	rec     safety.Scored
	sum     uint64
	sampled bool
	err     error
}

// hashPool fans hashing out over a bounded ants pool. Hashing is the CPU- and
// I/O-heavy part of duplicate resolution, so the pool size is the only
// concurrency knob the resolver has.
type hashPool struct {
	tasks   chan hashTask
	results chan hashResult
	pool    *ants.Pool
	wg      sync.WaitGroup
}

// newHashPool starts workers goroutines draining the task channel. Close the
// pool with close() once all tasks are submitted; the results channel closes
// after the last worker finishes.
func newHashPool(ctx context.Context, workers int) (*hashPool, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	p := &hashPool{
		tasks:   make(chan hashTask, workers*2),
		results: make(chan hashResult, workers*2),
		pool:    pool,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		if err := pool.Submit(func() { p.worker(ctx) }); err != nil {
			p.wg.Done()
			pool.Release()
			return nil, err
		}
	}

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p, nil
}

func (p *hashPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		if ctx.Err() != nil {
			// Drain remaining tasks without hashing so submitters
			// never block on a cancelled run.
			continue
		}
		sum, sampled, err := hashFile(task.rec.Path, task.rec.Size, task.ceiling)
		if err != nil {
			logging.L().Debug().Err(err).Str("path", task.rec.Path).Msg("hash failed")
		}
		p.results <- hashResult{rec: task.rec, sum: sum, sampled: sampled, err: err}
	}
}

func (p *hashPool) submit(t hashTask) {
	p.tasks <- t
}

func (p *hashPool) close() {
	close(p.tasks)
	p.pool.Release()
}
