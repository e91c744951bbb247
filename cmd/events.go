/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iheejigoro/apiserver/config"
	"github.com/iheejigoro/apiserver/internal/logging"
	"github.com/iheejigoro/apiserver/internal/mq"
	"github.com/iheejigoro/apiserver/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to the events channel and log every event",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Log, os.Stdout)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.NewFromConfig(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if broker == nil {
			return fmt.Errorf("events are disabled (MQ_BACKEND=%s)", cfg.Events.Backend)
		}
		defer func() {
			_ = broker.Close()
		}()

		logger.Info("watching events", "backend", cfg.Events.Backend, "channel", cfg.Events.Channel)
		err = broker.SubscribeEvents(ctx, cfg.Events.Channel, func(ctx context.Context, id string, event types.Event) error {
			logger.InfoContext(ctx, "event",
				"id", id,
				"type", event.Type,
				"subject_id", event.SubjectID,
				"actor_id", event.ActorID,
				"occurred_at", event.OccurredAt,
				"payload", string(event.Payload),
			)
			return nil
		}, func(msg mq.Message, err error) {
			logger.Warn("skipping malformed event", "id", msg.ID, "error", err)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
