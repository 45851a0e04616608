package notify

import (
	"context"
	"strings"
	"time"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/mq"
)

const (
	BackendDirect = "direct"
	BackendNone   = "none"
)

// NewSenderFromConfig wires SendGrid email, when credentials are set, and
// Textbelt SMS.
func NewSenderFromConfig(cfg config.NotifyConfig) *Sender {
	sender := NewSender(nil, NewTextbelt(cfg.TextbeltKey, cfg.TextbeltURL, cfg.Timeout))
	if sendGrid := NewSendGrid(cfg.SendGridAPIKey, cfg.FromEmail, cfg.SendGridURL, cfg.Timeout); sendGrid != nil {
		sender.Email = sendGrid
	} else {
		logging.Component("notify").Info("SENDGRID_API_KEY or FROM_EMAIL unset, confirmation emails disabled")
	}
	return sender
}

// Setup builds the dispatcher selected by cfg.Notify.Backend. The returned
// close function drains in-flight deliveries and releases broker resources.
func Setup(ctx context.Context, cfg config.Config) (Dispatcher, func(), error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	log := logging.Component("notify").WithField("backend", backend)

	switch {
	case backend == BackendNone:
		log.Info("notifications disabled")
		return Discard{}, func() {}, nil
	case mq.IsBroker(backend):
		broker, err := mq.Open(ctx, backend, cfg)
		if err != nil {
			return nil, nil, err
		}
		dispatcher, err := NewPoolDispatcher(NewPublish(broker, cfg.Notify.Channel), cfg.Notify.PoolSize, cfg.Notify.Timeout)
		if err != nil {
			_ = broker.Close()
			return nil, nil, err
		}
		if backend == mq.BackendMemory {
			// The in-memory broker is invisible to a separate notifier
			// process, so deliver from a consumer inside this one.
			stop := consumeInProcess(broker, cfg.Notify)
			log.WithField("channel", cfg.Notify.Channel).Info("notifications delivered by in-process consumer")
			return dispatcher, func() {
				_ = dispatcher.Close(cfg.Notify.Timeout + time.Second)
				stop()
				_ = broker.Close()
			}, nil
		}
		log.WithField("channel", cfg.Notify.Channel).Info("notifications published to broker")
		return dispatcher, func() {
			_ = dispatcher.Close(cfg.Notify.Timeout + time.Second)
			_ = broker.Close()
		}, nil
	default:
		if backend != BackendDirect && backend != "" {
			log.Warn("unknown notify backend, falling back to direct delivery")
		}
		dispatcher, err := NewPoolDispatcher(NewSenderFromConfig(cfg.Notify), cfg.Notify.PoolSize, cfg.Notify.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return dispatcher, func() {
			_ = dispatcher.Close(cfg.Notify.Timeout + time.Second)
		}, nil
	}
}

// consumeInProcess runs a Consumer delivering through the configured
// providers until the returned stop function is called.
func consumeInProcess(broker mq.Backend, cfg config.NotifyConfig) func() {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewConsumer(broker, cfg.Channel, NewSenderFromConfig(cfg))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			consumer.log.WithError(err).Error("in-process notification consumer stopped")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
