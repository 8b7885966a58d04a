// Package publisher routes audit events to a persistent store and optional
// external sinks. In sync mode Emit appends inline; with an async buffer
// events flow through a background goroutine so evaluation latency is not
// coupled to audit storage.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "veripass/pkg/domain"
	audit "veripass/pkg/platform/audit"
)

// Publisher fans audit events out to the store and sinks.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox chan audit.Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission through a channel of the
// given capacity. When the buffer is full the event is dropped and logged;
// audit must never block or fail the evaluation pipeline.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink adds an external best-effort sink (e.g. the kafka compliance
// stream). Sink failures are logged, never propagated.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

// WithLogger sets the logger used for drop and sink-failure reports.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a publisher over the given store. Without options it
// operates synchronously.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode a full buffer drops the event rather
// than blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.deliver(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.log().Warn("audit buffer full, dropping event", "action", event.Action)
		return nil
	}
}

// List returns the stored events for an assessment.
func (p *Publisher) List(ctx context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	return p.store.ListByAssessment(ctx, assessmentID)
}

// Close drains any buffered events and stops the background goroutine.
// Safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			p.persist(event)
		case <-p.done:
			// Drain whatever is left before exiting.
			for {
				select {
				case event := <-p.inbox:
					p.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) persist(event audit.Event) {
	if err := p.deliver(context.Background(), event); err != nil {
		p.log().Error("audit event persist failed", "action", event.Action, "error", err)
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Publish(ctx, event); sinkErr != nil {
			p.log().Warn("audit sink publish failed", "action", event.Action, "error", sinkErr)
		}
	}
	return err
}

func (p *Publisher) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
