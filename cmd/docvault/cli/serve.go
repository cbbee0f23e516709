package cli

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/cobra"
	"github.com/yi-nology/docvault/biz/handler"
	"github.com/yi-nology/docvault/biz/router"
	"github.com/yi-nology/docvault/pkg/logging"
)

// multipart framing on top of the largest accepted file
const bodySlack = 1 << 20

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the HTTP API. With the in-memory queue the upload workers and the reaper run in the same process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()
			defer func() { _ = logging.Sync() }()

			if err := a.Migrate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			wait := func() {}
			if !a.SharedQueue() {
				wait = a.StartWorkers(ctx)
				if err := a.RecoverQueue(ctx); err != nil {
					cancel()
					wait()
					return err
				}
			}

			cfg := a.Config
			maxBody := bodySlack
			if cfg.Upload.MaxSize > 0 {
				maxBody += int(cfg.Upload.MaxSize)
			}
			h := server.Default(
				server.WithHostPorts(cfg.Server.Address),
				server.WithMaxRequestBodySize(maxBody),
			)
			router.Register(h, &cfg.CORS, router.Handlers{
				Documents: handler.NewDocumentHandler(a.Service),
				Backends:  handler.NewBackendHandler(a.Service),
			})
			h.OnShutdown = append(h.OnShutdown, func(context.Context) { cancel() })

			logging.Info("docvault listening",
				logging.String("address", cfg.Server.Address),
				logging.String("queue", a.Queue.Name()),
			)
			h.Spin()

			cancel()
			wait()
			return nil
		},
	}
}
