package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yi-nology/docvault/biz/app"
	"github.com/yi-nology/docvault/biz/handler/version"
)

func NewRetryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <versionID>",
		Short: "Queue a failed upload again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid version id %q", args[0])
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.Service.Resubmit(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued job %s for version %d\n", job.JobID, job.VersionID)
			return drainLocal(cmd, a)
		},
	}
}

func NewRequeueFailedCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "requeue-failed",
		Short: "Queue every failed upload whose staged file still exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Service.RequeueFailed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d failed versions\n", n)
			return drainLocal(cmd, a)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of versions to queue")

	return cmd
}

func NewReapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Fail uploads whose worker died and queue them again",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Reaper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d stale uploads\n", n)
			return drainLocal(cmd, a)
		},
	}
}

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "docvault %s\ncommit: %s\nbuilt: %s\ngo: %s\n",
				info.Version, info.GitCommit, info.BuildTime, info.GoVersion)
		},
	}
}

// drainLocal runs queued jobs in-process when nothing else would consume
// them, since the in-memory queue dies with this command.
func drainLocal(cmd *cobra.Command, a *app.App) error {
	if a.SharedQueue() {
		return nil
	}
	n, err := a.Drain(cmd.Context())
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "processed %d uploads in-process\n", n)
	}
	return nil
}
