package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrQueueFull = errors.New("notification queue full")

// Dispatcher queues events in memory and delivers them from worker
// goroutines, retrying with exponential backoff before dead-lettering.
type Dispatcher struct {
	sender  Sender
	dead    DeadLetterStore
	limiter *rate.Limiter
	cfg     utils.NotifyConfig
	log     *zap.Logger

	queue   chan Event
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewDispatcher(sender Sender, dead DeadLetterStore, cfg utils.NotifyConfig, log *zap.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Dispatcher{
		sender:  sender,
		dead:    dead,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		log:     log.With(zap.String("component", "notify")),
		queue:   make(chan Event, cfg.QueueSize),
	}
}

// Start launches the workers. They run until Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.log.Info("Notification dispatcher started", zap.Int("workers", d.cfg.Workers))
}

// Notify enqueues the event without waiting. A full queue dead-letters the
// event instead of blocking the caller.
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn("Notification after shutdown dropped to dead letter",
			zap.String("event", string(event.Name)),
			zap.String("vendor_id", event.VendorID.String()),
		)
		d.deadLetter(context.WithoutCancel(ctx), event, errors.New("dispatcher stopped"))
		return
	}

	select {
	case d.queue <- event:
		d.log.Debug("Notification queued",
			zap.String("event", string(event.Name)),
			zap.String("event_id", event.ID.String()),
		)
	default:
		d.log.Warn("Notification queue full",
			zap.String("event", string(event.Name)),
			zap.Int("queue_size", d.cfg.QueueSize),
		)
		d.deadLetter(context.WithoutCancel(ctx), event, ErrQueueFull)
	}
}

// Stop closes the queue, lets workers drain what is left and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
	d.log.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		event.Attempts = attempt
		err := d.sender.Send(ctx, event)
		if err == nil {
			d.log.Info("Notification delivered",
				zap.String("event", string(event.Name)),
				zap.String("event_id", event.ID.String()),
				zap.String("vendor_id", event.VendorID.String()),
				zap.Int("attempt", attempt),
			)
			return
		}
		lastErr = err

		d.log.Warn("Notification delivery failed",
			zap.Error(err),
			zap.String("event", string(event.Name)),
			zap.String("event_id", event.ID.String()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
		)

		if attempt == d.cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(d.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			d.deadLetter(context.WithoutCancel(ctx), event, lastErr)
			return
		case <-timer.C:
		}
	}

	d.deadLetter(context.WithoutCancel(ctx), event, lastErr)
}

// backoff doubles per attempt, capped at MaxBackoff.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return wait
}

func (d *Dispatcher) deadLetter(ctx context.Context, event Event, reason error) {
	if err := d.dead.Put(ctx, event, reason); err != nil {
		d.log.Error("Failed to dead-letter notification",
			zap.Error(err),
			zap.NamedError("reason", reason),
			zap.String("event", string(event.Name)),
			zap.String("event_id", event.ID.String()),
		)
		return
	}
	d.log.Error("Notification dead-lettered",
		zap.NamedError("reason", reason),
		zap.String("event", string(event.Name)),
		zap.String("event_id", event.ID.String()),
		zap.Int("attempts", event.Attempts),
	)
}
