package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kanalyze-tools/kanalyze/internal/taskutil"
)

// Pipeline runs items of type I through a transform into type O across a
// fixed-size worker pool, and delivers the results to a single consumer in
// the exact order the items were submitted — regardless of the order in
// which the workers finish.
//
// The zero value is not usable; construct with New.
type Pipeline[I, O any] struct {
	transform  func(I) O
	consume    func(O)
	numWorkers int
	onDrop     func(reason string)
	logger     *slog.Logger

	mu      sync.Mutex
	queueCV *sync.Cond

	ended   bool
	nextSeq uint64 // next sequence number to assign to a submitted item
	total   uint64 // set to nextSeq once ended; the last valid seq+1

	queue []seqItem[I] // unbounded FIFO of not-yet-started items

	results    map[uint64]outcome[O]
	resultCV   *sync.Cond
	nextToEmit uint64
	window     int // backpressure bound: results may run this far ahead of nextToEmit

	emitterDone chan struct{}

	joinOnce sync.Once
}

type seqItem[I any] struct {
	seq   uint64
	id    string // uuid, for correlating this item's drop logs across transform/consume
	value I
}

type outcome[O any] struct {
	value  O
	id     string
	failed bool
}

// Option configures a Pipeline constructed with New.
type Option func(*options)

type options struct {
	window int
	onDrop func(reason string)
	logger *slog.Logger
}

// WithWindow overrides the default backpressure window (how far, in result
// entries, workers may run ahead of the emitter's cursor before blocking).
// The default is 4x the worker count.
func WithWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithDropHook registers a callback invoked once for every item dropped
// because the transform or the consumer panicked. reason is either
// "transform" or "consume". The kanalyze command wires this to the
// metrics.PipelineItemsFailed counter.
func WithDropHook(f func(reason string)) Option {
	return func(o *options) { o.onDrop = f }
}

// WithLogger overrides the logger used to report dropped items. The
// default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New constructs a Pipeline with the given transform, consumer, and worker
// count. It returns an error wrapping ErrInvalidWorkerCount if numWorkers is
// less than 1.
func New[I, O any](transform func(I) O, consume func(O), numWorkers int, opts ...Option) (*Pipeline[I, O], error) {
	if numWorkers < 1 {
		return nil, fmt.Errorf("pipeline: %w: numWorkers must be >= 1, got %d", ErrInvalidWorkerCount, numWorkers)
	}

	o := options{window: numWorkers * 4, logger: slog.Default()}
	for _, apply := range opts {
		apply(&o)
	}

	p := &Pipeline[I, O]{
		transform:  transform,
		consume:    consume,
		numWorkers: numWorkers,
		onDrop:     o.onDrop,
		logger:     o.logger,
		results:    make(map[uint64]outcome[O]),
		window:     o.window,
	}
	p.queueCV = sync.NewCond(&p.mu)
	p.resultCV = sync.NewCond(&p.mu)
	p.emitterDone = make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		go p.runWorker()
	}
	go p.runEmitter()

	return p, nil
}

// Add appends an item to the input stream. It returns ErrPipelineEnded if
// End has already been called.
func (p *Pipeline[I, O]) Add(v I) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return ErrPipelineEnded
	}

	seq := p.nextSeq
	p.nextSeq++
	p.queue = append(p.queue, seqItem[I]{seq: seq, id: uuid.NewString(), value: v})
	p.queueCV.Signal()
	return nil
}

// End signals that no further items will be submitted. It is idempotent;
// calling it more than once has no additional effect.
func (p *Pipeline[I, O]) End() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return
	}

	p.ended = true
	p.total = p.nextSeq
	p.queueCV.Broadcast()
	p.resultCV.Broadcast()
}

// Join blocks until every submitted item has been processed and consumed
// (or dropped by a panic), then returns. Join must be called at most once,
// after End.
func (p *Pipeline[I, O]) Join() {
	p.joinOnce.Do(func() {
		<-p.emitterDone
	})
}

func (p *Pipeline[I, O]) runWorker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.ended {
			p.queueCV.Wait()
		}
		if len(p.queue) == 0 {
			// ended and drained: nothing left for this worker to do, ever.
			p.mu.Unlock()
			return
		}

		item := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		out := p.runTransform(item.id, item.value)

		p.mu.Lock()
		for item.seq >= p.nextToEmit+uint64(p.window) {
			p.resultCV.Wait()
		}
		p.results[item.seq] = out
		p.resultCV.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Pipeline[I, O]) runTransform(id string, v I) outcome[O] {
	var out outcome[O]
	func() {
		defer func() {
			if r := recover(); r != nil {
				out = outcome[O]{id: id, failed: true}
				if p.onDrop != nil {
					p.onDrop("transform")
				}
				trace := taskutil.GetStackTrace(nil, 2)
				p.logger.Warn("pipeline: transform panicked, dropping item",
					"item_id", id, "panic", r, "stack", trace.String())
			}
		}()
		out = outcome[O]{id: id, value: p.transform(v)}
	}()
	return out
}

func (p *Pipeline[I, O]) runEmitter() {
	defer close(p.emitterDone)

	for {
		p.mu.Lock()
		var out outcome[O]
		var ready bool
		for {
			if p.ended && p.nextToEmit == p.total {
				p.mu.Unlock()
				return
			}

			var ok bool
			out, ok = p.results[p.nextToEmit]
			if ok {
				delete(p.results, p.nextToEmit)
				p.nextToEmit++
				p.resultCV.Broadcast()
				ready = true
				break
			}

			p.resultCV.Wait()
		}
		p.mu.Unlock()

		if ready && !out.failed {
			p.runConsume(out.id, out.value)
		}
	}
}

func (p *Pipeline[I, O]) runConsume(id string, v O) {
	defer func() {
		if r := recover(); r != nil {
			if p.onDrop != nil {
				p.onDrop("consume")
			}
			trace := taskutil.GetStackTrace(nil, 2)
			p.logger.Warn("pipeline: consumer panicked, dropping result",
				"item_id", id, "panic", r, "stack", trace.String())
		}
	}()
	p.consume(v)
}
