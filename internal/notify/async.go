package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AsyncDispatcher runs deliveries on a fixed worker pool fed by a bounded
// queue. A full queue drops the notification instead of blocking.
type AsyncDispatcher struct {
	sender  Sender
	jobs    chan Notification
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(sender Sender, workers, buffer int) *AsyncDispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &AsyncDispatcher{
		sender:  sender,
		jobs:    make(chan Notification, buffer),
		timeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Dispatch enqueues n. The caller's context is not carried into delivery so
// a finished request does not cancel its emails.
func (d *AsyncDispatcher) Dispatch(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		zap.L().Warn("[NOTIFY] dispatcher closed, dropping", zap.String("kind", string(n.Kind)), zap.String("orderId", n.Data.OrderID))
		return
	}

	select {
	case d.jobs <- n:
	default:
		zap.L().Warn("[NOTIFY] queue full, dropping", zap.String("kind", string(n.Kind)), zap.String("orderId", n.Data.OrderID))
		notificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
	}
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for n := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		Deliver(ctx, d.sender, n)
		cancel()
	}
}

// Close stops intake and waits for queued notifications to finish.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
