package notify

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
)

const DefaultPoolSize = 16

// PoolDispatcher hands notifications to a Deliverer on a bounded goroutine
// pool. Dispatch never blocks: when every worker is busy the notification is
// dropped with a warning.
type PoolDispatcher struct {
	pool      *ants.Pool
	deliverer Deliverer
	timeout   time.Duration
	inflight  sync.WaitGroup
	log       *logrus.Entry
}

func NewPoolDispatcher(deliverer Deliverer, size int, timeout time.Duration) (*PoolDispatcher, error) {
	if size < 1 {
		size = DefaultPoolSize
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true), ants.WithPanicHandler(func(p interface{}) {
		logging.Component("notify").Errorf("notification worker panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}
	return &PoolDispatcher{
		pool:      pool,
		deliverer: deliverer,
		timeout:   timeout,
		log:       logging.Component("notify"),
	}, nil
}

// Dispatch schedules delivery of n. The request context only contributes its
// values; delivery outlives the request.
func (d *PoolDispatcher) Dispatch(ctx context.Context, n Notification) {
	ctx = context.WithoutCancel(ctx)
	d.inflight.Add(1)
	err := d.pool.Submit(func() {
		defer d.inflight.Done()
		runCtx := ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		if err := d.deliverer.Deliver(runCtx, n); err != nil {
			d.log.WithError(err).WithField("booking_id", n.Booking.ID).Warn("notification delivery failed")
		}
	})
	if err != nil {
		d.inflight.Done()
		d.log.WithError(err).WithField("booking_id", n.Booking.ID).Warn("notification dropped")
		metrics.IncNotification("dispatch", "dropped")
	}
}

// Wait blocks until every accepted notification has been handled or ctx is
// done.
func (d *PoolDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for running deliveries up to timeout and releases the pool.
func (d *PoolDispatcher) Close(timeout time.Duration) error {
	return d.pool.ReleaseTimeout(timeout)
}
