package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow-backend/pkg/messaging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print lead.created events as they are published",
	Long: `Binds a temporary queue to the lead exchange and prints every lead.created
event until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("routing-key", "lead.#", "routing key pattern to bind")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pattern, _ := cmd.Flags().GetString("routing-key")

	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer rmq.Close()

	consumer, err := messaging.NewConsumer(rmq, "", log)
	if err != nil {
		return err
	}
	if err := consumer.Subscribe(messaging.ExchangeLeadEvents, pattern); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	messaging.On(consumer, messaging.EventLeadCreated, func(_ context.Context, event *messaging.Event, data messaging.LeadCreatedEvent) error {
		log.Debug().Str("event_id", event.ID).Str("lead_id", data.LeadID).Msg("lead created")
		return printJSON(out, data)
	})

	return consumer.Run(ctx)
}
