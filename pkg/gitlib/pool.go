package gitlib

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrNoWorkers is returned when a pool is created with fewer than one worker.
var ErrNoWorkers = errors.New("handle pool needs at least one worker")

// JobFunc processes one job using the calling worker's repository handle.
type JobFunc func(ctx context.Context, repo *Repository, job int) error

// HandlePool runs jobs on a fixed number of workers, each holding its own
// Repository handle. libgit2 handles are not shared between goroutines, so
// every worker opens one lazily on its first job and frees it when it exits.
type HandlePool struct {
	path    string
	workers int
	opened  atomic.Int64
}

// NewHandlePool creates a pool of workers over the repository at path.
func NewHandlePool(path string, workers int) (*HandlePool, error) {
	if workers < 1 {
		return nil, ErrNoWorkers
	}

	return &HandlePool{path: path, workers: workers}, nil
}

// Workers returns the configured worker count.
func (p *HandlePool) Workers() int {
	return p.workers
}

// HandlesOpened returns how many repository handles have been opened so far.
func (p *HandlePool) HandlesOpened() int64 {
	return p.opened.Load()
}

// Run executes fn for every job index in [0, jobs). Jobs are handed out in
// index order. The first error cancels the remaining jobs and is returned.
func (p *HandlePool) Run(ctx context.Context, jobs int, fn JobFunc) error {
	if jobs <= 0 {
		return nil
	}

	queue := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)

		for job := range jobs {
			select {
			case queue <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	for range min(p.workers, jobs) {
		g.Go(func() error {
			return p.work(gctx, queue, fn)
		})
	}

	return g.Wait()
}

func (p *HandlePool) work(ctx context.Context, queue <-chan int, fn JobFunc) error {
	// libgit2 keeps per-thread error state.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var repo *Repository

	defer func() {
		if repo != nil {
			repo.Free()
		}
	}()

	for job := range queue {
		if repo == nil {
			handle, err := OpenRepository(p.path)
			if err != nil {
				return err
			}

			p.opened.Add(1)
			repo = handle
		}

		err := fn(ctx, repo, job)
		if err != nil {
			return err
		}
	}

	return ctx.Err()
}
