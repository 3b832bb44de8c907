/*
	Package chunker executes data requests on a bounded worker pool off the
	caller's goroutine, delivering each response through a completion
	callback.  Submitting a new batch supersedes the previous one: requests
	still pending or in flight are canceled and never delivered.  No ordering
	is guaranteed between responses of one batch.
*/

package chunker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/twinj/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
)

// ResponseFunc receives one completed request.  It is called from pool
// goroutines and must be safe for concurrent use.
type ResponseFunc func(display.DataResponse)

// Chunker is a bounded pool for slicing requests.
type Chunker struct {
	id       string
	sem      *semaphore.Weighted
	callback ResponseFunc
	cache    *responseCache

	generation atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a pool running at most workers requests concurrently.  Every
// completed request is handed to callback.  cacheMB > 0 enables a response
// cache of that many megabytes.
func New(workers int, cacheMB int, callback ResponseFunc) *Chunker {
	if workers < 1 {
		workers = 1
	}
	c := &Chunker{
		id:       uuid.NewV4().String(),
		sem:      semaphore.NewWeighted(int64(workers)),
		callback: callback,
	}
	if cacheMB > 0 {
		c.cache = newResponseCache(cacheMB)
	}
	ndv.Debugf("Started request pool %s with %d workers\n", c.id, workers)
	return c
}

// Submit starts a new generation of requests, canceling any not yet
// delivered from earlier generations.  It returns without waiting for
// completion.
func (c *Chunker) Submit(ctx context.Context, reqs []display.DataRequest) {
	gen := c.generation.Add(1)
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.wg.Add(len(reqs))
	c.mu.Unlock()

	for _, req := range reqs {
		go c.run(ctx, gen, req)
	}
}

func (c *Chunker) run(ctx context.Context, gen uint64, req display.DataRequest) {
	defer c.wg.Done()

	if c.cache != nil {
		if arr, ok := c.cache.get(req); ok {
			c.deliver(gen, display.DataResponse{Channel: req.Channel, Data: arr})
			return
		}
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return // superseded while queued
	}
	defer c.sem.Release(1)

	timer := ndv.NewTimeLog()
	arr, err := req.Execute(ctx)
	if ctx.Err() != nil {
		return // superseded while executing
	}
	if err != nil {
		c.deliver(gen, display.DataResponse{Channel: req.Channel, Err: err})
		return
	}
	timer.Debugf("pool %s: executed channel %d request", c.id, req.Channel)
	if c.cache != nil {
		c.cache.put(req, arr)
	}
	c.deliver(gen, display.DataResponse{Channel: req.Channel, Data: arr})
}

// deliver invokes the callback unless the response was superseded between
// execution and delivery.
func (c *Chunker) deliver(gen uint64, resp display.DataResponse) {
	if c.generation.Load() != gen {
		return
	}
	c.callback(resp)
}

// Wait blocks until every submitted request has finished or been canceled.
func (c *Chunker) Wait() {
	c.wg.Wait()
}

// Shutdown cancels pending work and waits for in-flight requests to drain.
func (c *Chunker) Shutdown() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	ndv.Debugf("Stopped request pool %s\n", c.id)
}
