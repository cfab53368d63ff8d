package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go-doctor-scheduling/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotificationQueueFull = errors.New("notification queue is full")
	ErrDispatcherStopped     = errors.New("notification dispatcher is stopped")
)

const publishTimeout = 5 * time.Second

// Notifier accepts events without waiting for their delivery
type Notifier interface {
	Notify(event entity.NotificationEvent) error
}

// NotificationPublisher hands an event to the outbound transport
type NotificationPublisher interface {
	Publish(ctx context.Context, event entity.NotificationEvent) error
}

// IdempotencyStore remembers which events were already delivered.
// Claim returns false when the key was claimed before.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type DispatcherConfig struct {
	BufferSize   int
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
	DedupeTTL    time.Duration
}

// NotificationDispatcher is a buffered outbound queue drained by a fixed pool
// of workers. Delivery outcome never flows back to the caller of Notify.
type NotificationDispatcher struct {
	cfg       DispatcherConfig
	publisher NotificationPublisher
	store     IdempotencyStore
	log       *logrus.Logger

	queue   chan entity.NotificationEvent
	wg      sync.WaitGroup
	stopMu  sync.RWMutex
	stopped atomic.Bool
}

func NewNotificationDispatcher(cfg DispatcherConfig, publisher NotificationPublisher, store IdempotencyStore, log *logrus.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		cfg:       cfg,
		publisher: publisher,
		store:     store,
		log:       log,
		queue:     make(chan entity.NotificationEvent, cfg.BufferSize),
	}
}

// Start launches the worker goroutines. Call Stop during graceful shutdown.
func (d *NotificationDispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Infof("NotificationDispatcher started with %d workers", d.cfg.Workers)
}

// Notify enqueues the event and returns immediately.
func (d *NotificationDispatcher) Notify(event entity.NotificationEvent) error {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()

	if d.stopped.Load() {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return ErrNotificationQueueFull
	}
}

// Stop stops accepting events, drains what is queued and waits for the workers.
// Safe to call multiple times.
func (d *NotificationDispatcher) Stop() {
	d.stopMu.Lock()
	if !d.stopped.CompareAndSwap(false, true) {
		d.stopMu.Unlock()
		return
	}
	close(d.queue)
	d.stopMu.Unlock()

	d.wg.Wait()
	d.log.Info("NotificationDispatcher stopped")
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()

	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *NotificationDispatcher) deliver(event entity.NotificationEvent) {
	key := "notification:sent:" + event.ID.String()

	claimCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	claimed, err := d.store.Claim(claimCtx, key, d.cfg.DedupeTTL)
	cancel()
	if err != nil {
		// Without the dedupe store we may send twice; at-least-once is acceptable
		d.log.Warnf("Failed to claim notification %s, publishing anyway: %+v", event.ID, err)
	} else if !claimed {
		d.log.Debugf("Skipping already delivered notification %s (%s)", event.ID, event.Type)
		return
	}

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = d.publisher.Publish(pubCtx, event)
		cancel()
		if err == nil {
			d.log.Debugf("Delivered notification %s (%s) for appointment %d", event.ID, event.Type, event.AppointmentID)
			return
		}

		d.log.Warnf("Failed to publish notification %s (attempt %d/%d): %+v", event.ID, attempt, d.cfg.MaxAttempts, err)
		if attempt < d.cfg.MaxAttempts {
			time.Sleep(d.cfg.RetryBackoff * time.Duration(attempt))
		}
	}

	d.log.Errorf("Giving up on notification %s (%s) for appointment %d", event.ID, event.Type, event.AppointmentID)

	releaseCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.store.Release(releaseCtx, key); err != nil {
		d.log.Warnf("Failed to release dedupe key for notification %s: %+v", event.ID, err)
	}
}
