package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher hands envelopes to a bounded worker pool so publishing never
// blocks a request goroutine and never propagates failure back to it.
// When the queue is full the envelope is dropped and logged.
type Publisher struct {
	sink    Sink
	topic   string
	log     *zap.Logger
	timeout time.Duration

	queue chan Envelope
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPublisher starts the worker pool. queueSize and workers are clamped
// to at least 1.
func NewPublisher(sink Sink, topic string, queueSize, workers int, timeout time.Duration, log *zap.Logger) *Publisher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	p := &Publisher{
		sink:    sink,
		topic:   topic,
		log:     log,
		timeout: timeout,
		queue:   make(chan Envelope, queueSize),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Enqueue submits an envelope without blocking. Saturation drops the
// envelope and logs the loss; an enqueue after Close is dropped the same
// way instead of panicking on the closed channel.
func (p *Publisher) Enqueue(e Envelope) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("publisher closed, dropping event",
			zap.String("type", e.Type),
			zap.Int64("user_id", e.UserID),
		)
		return
	}

	select {
	case p.queue <- e:
	default:
		p.log.Warn("event queue saturated, dropping event",
			zap.String("type", e.Type),
			zap.Int64("user_id", e.UserID),
		)
	}
}

func (p *Publisher) worker() {
	defer p.wg.Done()

	for e := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.sink.Publish(ctx, p.topic, e)
		cancel()

		if err != nil {
			p.log.Warn("event publish failed",
				zap.String("type", e.Type),
				zap.Int64("user_id", e.UserID),
				zap.String("event_id", e.EventID),
				zap.Error(err),
			)
			continue
		}

		p.log.Info("event published",
			zap.String("type", e.Type),
			zap.Int64("user_id", e.UserID),
			zap.String("event_id", e.EventID),
		)
	}
}

// Close drains the queue and stops the workers. Safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	alreadyClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !alreadyClosed {
		close(p.queue)
	}
	p.wg.Wait()
}
