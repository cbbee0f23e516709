package main

import (
	"fmt"
	"os"

	"github.com/yi-nology/docvault/biz/handler/version"
	"github.com/yi-nology/docvault/cmd/docvault/cli"
)

var (
	appVersion = "dev"
	commit     = "unknown"
	buildTime  = "unknown"
)

func main() {
	version.AppVersion = appVersion
	version.AppGitCommit = commit
	version.AppBuildTime = buildTime

	root := cli.NewRootCommand()

	root.AddCommand(cli.NewServeCommand())
	root.AddCommand(cli.NewWorkerCommand())
	root.AddCommand(cli.NewRetryCommand())
	root.AddCommand(cli.NewRequeueFailedCommand())
	root.AddCommand(cli.NewReapCommand())
	root.AddCommand(cli.NewMigrateCommand())
	root.AddCommand(cli.NewVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
