// Package publisher buffers audit events in memory and flushes them to every
// configured sink, either when a batch fills up or on a cron schedule.
//
// Delivery is best-effort: Emit never blocks, a full buffer drops its oldest
// entry, and events still buffered when the process dies are lost.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	audit "yeirin/pkg/platform/audit"
	"yeirin/pkg/requestcontext"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

const (
	defaultFlushSize = 100
	defaultCapacity  = 10000
	defaultSchedule  = "@every 5s"
)

// Publisher is the process-wide audit queue.
type Publisher struct {
	buf       *RingBuffer
	sinks     []audit.Sink
	flushSize int
	schedule  string
	logger    *slog.Logger

	cron    *cron.Cron
	kick    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	flushMu sync.Mutex
	closed  atomic.Bool
	started atomic.Bool
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithFlushSize sets the batch size that triggers an immediate flush.
func WithFlushSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.flushSize = n
		}
	}
}

// WithCapacity bounds the in-memory buffer.
func WithCapacity(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buf = NewRingBuffer(n)
		}
	}
}

// WithSchedule sets the cron spec for periodic flushes, e.g. "@every 5s".
func WithSchedule(spec string) Option {
	return func(p *Publisher) {
		if spec != "" {
			p.schedule = spec
		}
	}
}

// NewPublisher builds a publisher writing to sinks. Call Start to begin
// background flushing.
func NewPublisher(sinks []audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		buf:       NewRingBuffer(defaultCapacity),
		sinks:     sinks,
		flushSize: defaultFlushSize,
		schedule:  defaultSchedule,
		logger:    slog.Default(),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the size-triggered flush loop and the cron schedule.
func (p *Publisher) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.schedule, func() {
		if err := p.Flush(context.Background()); err != nil {
			p.logger.Warn("scheduled audit flush failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule audit flush %q: %w", p.schedule, err)
	}
	p.cron.Start()

	p.wg.Add(1)
	go p.loop()
	return nil
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case <-p.kick:
			if err := p.Flush(context.Background()); err != nil {
				p.logger.Warn("audit flush failed", "error", err)
			}
		}
	}
}

// Emit enqueues event without blocking. Missing timestamp and request
// metadata are filled from ctx.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buf.Enqueue(event) >= p.flushSize {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush drains the buffer in batches of flushSize. Every sink receives every
// batch; one failing sink does not stop the others.
func (p *Publisher) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	var errs []error
	for {
		batch := p.buf.DequeueBatch(p.flushSize)
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		for _, sink := range p.sinks {
			g.Go(func() error {
				return sink.Write(ctx, batch)
			})
		}
		if err := g.Wait(); err != nil {
			p.logger.ErrorContext(ctx, "audit sink write failed",
				"error", err,
				"batch_size", len(batch),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending reports the number of buffered events.
func (p *Publisher) Pending() int { return p.buf.Len() }

// Dropped reports how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() int64 { return p.buf.Dropped() }

// Close stops background flushing and performs a final flush.
func (p *Publisher) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.started.Load() {
		<-p.cron.Stop().Done()
		close(p.done)
		p.wg.Wait()
	}
	return p.Flush(ctx)
}
