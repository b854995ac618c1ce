package monoart

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("monoart: render queue closed")

// JobKind selects the render path of a job.
type JobKind int

const (
	PreviewJob JobKind = iota
	CaptureJob
)

func (k JobKind) String() string {
	if k == CaptureJob {
		return "capture"
	}
	return "preview"
}

// Request describes one render.
type Request struct {
	Kind         JobKind
	Source       *imageutil.PixelBuffer
	Effect       effect.Type
	Parameters   effect.Parameters
	Palette      palette.State
	CellOverride int
}

// Result is delivered once per submitted job. A cancelled job carries no
// frame and no error.
type Result struct {
	ID        uuid.UUID
	Kind      JobKind
	Frame     AsciiFrame
	Err       error
	Cancelled bool
}

type job struct {
	id     uuid.UUID
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
	done   chan Result
}

// RenderQueue runs renders on a single worker goroutine. A new preview
// supersedes any preview that is pending or running; captures always run.
type RenderQueue struct {
	engine Engine

	mu      sync.Mutex
	pending []*job
	preview *job
	closed  bool

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewRenderQueue starts a queue serving engine.
func NewRenderQueue(engine Engine) *RenderQueue {
	q := &RenderQueue{
		engine: engine,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Submit enqueues req. The returned channel receives exactly one Result.
// Cancelling ctx cancels the job.
func (q *RenderQueue) Submit(ctx context.Context, req Request) (uuid.UUID, <-chan Result, error) {
	jctx, cancel := context.WithCancel(ctx)
	j := &job{
		id:     uuid.New(),
		req:    req,
		ctx:    jctx,
		cancel: cancel,
		done:   make(chan Result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return uuid.Nil, nil, ErrQueueClosed
	}
	if req.Kind == PreviewJob {
		if q.preview != nil {
			q.preview.cancel()
		}
		q.preview = j
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	Logger().Debug("job submitted", "id", j.id, "kind", req.Kind.String())
	return j.id, j.done, nil
}

// Render submits req and waits for its result.
func (q *RenderQueue) Render(ctx context.Context, req Request) Result {
	id, done, err := q.Submit(ctx, req)
	if err != nil {
		return Result{ID: id, Kind: req.Kind, Err: err}
	}
	return <-done
}

// Pending reports how many jobs are waiting to start.
func (q *RenderQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *RenderQueue) next() *job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	j := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return j
}

func (q *RenderQueue) run() {
	defer q.wg.Done()
	for {
		j := q.next()
		if j == nil {
			select {
			case <-q.wake:
				continue
			case <-q.quit:
				return
			}
		}
		j.done <- q.execute(j)
		j.cancel()
		q.mu.Lock()
		if q.preview == j {
			q.preview = nil
		}
		q.mu.Unlock()
	}
}

func (q *RenderQueue) execute(j *job) Result {
	res := Result{ID: j.id, Kind: j.req.Kind}
	if j.ctx.Err() != nil {
		res.Cancelled = true
		return res
	}

	var frame AsciiFrame
	var err error
	r := j.req
	switch r.Kind {
	case CaptureJob:
		frame, err = q.engine.RenderCapture(j.ctx, r.Source, r.Effect, r.Parameters, r.Palette, r.CellOverride)
	default:
		frame, err = q.engine.RenderPreview(j.ctx, r.Source, r.Effect, r.Parameters, r.Palette)
	}
	switch {
	case IsCancelled(err):
		res.Cancelled = true
		Logger().Debug("job cancelled", "id", j.id, "kind", r.Kind.String())
	case err != nil:
		res.Err = err
	default:
		res.Frame = frame
	}
	return res
}

// Close cancels pending jobs, waits for the running job and stops the
// worker. Pending jobs report Cancelled.
func (q *RenderQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	if q.preview != nil {
		q.preview.cancel()
	}
	q.mu.Unlock()

	for _, j := range pending {
		j.cancel()
		j.done <- Result{ID: j.id, Kind: j.req.Kind, Cancelled: true}
	}
	close(q.quit)
	q.wg.Wait()
}
