package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yi-nology/docvault/pkg/logging"
)

func NewWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume the shared upload queue",
		Long:  "Run upload workers and the stale-claim reaper against the Redis queue until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()
			defer func() { _ = logging.Sync() }()

			if !a.SharedQueue() {
				return errors.New("the worker command needs worker.queue=redis; the in-memory queue is consumed by serve")
			}
			if err := a.Migrate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.RecoverQueue(ctx); err != nil {
				return err
			}
			a.StartWorkers(ctx)()
			return nil
		},
	}
}
