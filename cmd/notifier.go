/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/mq"
	"github.com/charismamove/apiserver/internal/notify"
)

// notifierCmd consumes booking confirmations published by the server and
// sends the email and SMS.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Deliver booking confirmations published to the message broker",
	Long: `Consumes booking confirmation messages from the broker selected by
NOTIFY_BACKEND (rabbitmq, pubsub or kafka) and delivers them by email and SMS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		backend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
		if !mq.IsBroker(backend) || backend == mq.BackendMemory {
			return fmt.Errorf("notifier needs a broker backend, NOTIFY_BACKEND is %q", cfg.Notify.Backend)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, backend, cfg)
		if err != nil {
			return fmt.Errorf("open broker: %w", err)
		}
		defer func() {
			_ = broker.Close()
		}()

		consumer := notify.NewConsumer(broker, cfg.Notify.Channel, notify.NewSenderFromConfig(cfg.Notify))
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logging.Component("notifier").Info("notifier stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
