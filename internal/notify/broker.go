package notify

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/internal/mq"
)

// Publish is a Deliverer that forwards notifications to a broker channel for
// the notifier worker.
type Publish struct {
	publisher mq.Publisher
	channel   string
}

func NewPublish(publisher mq.Publisher, channel string) *Publish {
	return &Publish{publisher: publisher, channel: channel}
}

func (p *Publish) Deliver(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := p.publisher.Publish(ctx, p.channel, data, map[string]string{"type": "booking.confirmed"}); err != nil {
		metrics.IncNotification("broker", "error")
		return err
	}
	metrics.IncNotification("broker", "published")
	return nil
}

// Consumer subscribes to the notification channel and delivers each message.
type Consumer struct {
	subscriber interface {
		Subscribe(ctx context.Context, channel string, handler mq.Handler) error
	}
	channel   string
	deliverer Deliverer
	log       *logrus.Entry
}

func NewConsumer(backend mq.Backend, channel string, deliverer Deliverer) *Consumer {
	return &Consumer{
		subscriber: backend,
		channel:    channel,
		deliverer:  deliverer,
		log:        logging.Component("notifier"),
	}
}

// Run consumes until ctx is done. Undecodable messages and delivery failures
// are logged and acknowledged; notifications are never retried.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.WithField("channel", c.channel).Info("consuming notifications")
	return c.subscriber.Subscribe(ctx, c.channel, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg mq.Message) error {
	var n Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		c.log.WithError(err).WithField("message_id", msg.ID).Error("invalid notification payload")
		return nil
	}
	if err := c.deliverer.Deliver(ctx, n); err != nil {
		c.log.WithError(err).WithField("booking_id", n.Booking.ID).Warn("notification delivery failed")
	}
	return nil
}
