/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/email-notifier/pkg/metrics"
)

var (
	// ErrQueueFull is returned when the dispatch queue has no free slot.
	ErrQueueFull = errors.New("mail queue is full")
	// ErrQueueStopped is returned for messages submitted after Stop.
	ErrQueueStopped = errors.New("mail queue is shutting down")
)

// queueItem is one message waiting for a worker.
type queueItem struct {
	ctx       context.Context
	msg       *gomail.Message
	cfg       TransportConfig
	result    chan error
	createdAt time.Time
}

// Dispatcher hands messages to a Transport from a bounded queue served by a
// fixed number of workers. Every submitted message is attempted exactly once.
// Dispatcher itself implements Transport so it can sit in front of a Pool.
type Dispatcher struct {
	transport    Transport
	log          *zap.SugaredLogger
	queue        chan *queueItem
	workers      int
	maxQueueSize int
	wg           sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher. Call Start before submitting.
func NewDispatcher(transport Transport, log *zap.SugaredLogger, workers, maxQueueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	log = log.Named("mail-dispatcher")
	log.Infow("Initializing mail dispatcher",
		"workers", workers,
		"maxQueueSize", maxQueueSize)

	return &Dispatcher{
		transport:    transport,
		log:          log,
		queue:        make(chan *queueItem, maxQueueSize),
		workers:      workers,
		maxQueueSize: maxQueueSize,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Infow("Mail dispatcher workers started", "workers", d.workers)
}

// Submit queues msg and returns a channel that receives the delivery result
// exactly once. A full or stopped queue completes the channel immediately.
func (d *Dispatcher) Submit(msg *gomail.Message, cfg TransportConfig) <-chan error {
	return d.submit(context.Background(), msg, cfg)
}

// submit keeps the values of ctx (trace context) for the worker but not its
// cancellation.
func (d *Dispatcher) submit(ctx context.Context, msg *gomail.Message, cfg TransportConfig) <-chan error {
	result := make(chan error, 1)
	item := &queueItem{
		ctx:       context.WithoutCancel(ctx),
		msg:       msg,
		cfg:       cfg,
		result:    result,
		createdAt: time.Now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.MailQueueDropped.WithLabelValues(cfg.Host).Inc()
		d.log.Errorw("Cannot enqueue, queue is shutting down", "host", cfg.Host)
		result <- ErrQueueStopped
		return result
	}

	select {
	case d.queue <- item:
		metrics.MailQueued.WithLabelValues(cfg.Host).Inc()
		d.log.Debugw("Email queued for sending",
			"host", cfg.Host,
			"subject", msg.GetHeader("Subject"))
	default:
		metrics.MailQueueDropped.WithLabelValues(cfg.Host).Inc()
		d.log.Errorw("Mail queue is full, dropping message",
			"host", cfg.Host,
			"queueSize", d.maxQueueSize)
		result <- fmt.Errorf("%w (capacity: %d)", ErrQueueFull, d.maxQueueSize)
	}
	return result
}

// Send submits msg and waits for its result. When ctx ends first the message
// stays queued and is still delivered.
func (d *Dispatcher) Send(ctx context.Context, msg *gomail.Message, cfg TransportConfig) error {
	select {
	case err := <-d.submit(ctx, msg, cfg):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for item := range d.queue {
		d.process(item)
	}
}

func (d *Dispatcher) process(item *queueItem) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("panic in mail dispatcher worker recovered", "panic", r)
			item.result <- fmt.Errorf("mail transport panicked: %v", r)
		}
	}()

	err := d.transport.Send(item.ctx, item.msg, item.cfg)
	// callers log the outcome; this only adds the queue latency
	d.log.Debugw("Queued email processed",
		"host", item.cfg.Host,
		"to", item.msg.GetHeader("To"),
		"queuedFor", time.Since(item.createdAt).String(),
		"error", err)
	item.result <- err
}

// Stop refuses new messages, lets the workers drain what is queued and waits
// for them until ctx ends.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
		d.log.Info("Stopping mail dispatcher")
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Mail dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		d.log.Warnw("Mail dispatcher shutdown timeout, some messages may not have been sent",
			"pending", len(d.queue))
		return ctx.Err()
	}
}

// Length returns the number of queued messages.
func (d *Dispatcher) Length() int {
	return len(d.queue)
}
