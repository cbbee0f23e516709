package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yi-nology/docvault/biz/app"
	"github.com/yi-nology/docvault/biz/handler/version"
	"github.com/yi-nology/docvault/pkg/config"
	"github.com/yi-nology/docvault/pkg/logging"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
}

var opts options

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docvault",
		Short:         "Multi-backend document storage",
		Long:          "docvault stores document versions on local disk, S3-compatible object storage or Google Drive, uploading them asynchronously.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file, looked up in the working directory then next to the binary")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.Version = fmt.Sprintf("%s (%s)", version.AppVersion, version.AppGitCommit)

	return cmd
}

// loadEnv reads .env files from the working directory and from the config
// file's directory. Missing files are ignored; variables already set win.
func loadEnv(configPath string) {
	envFiles := []string{".env", ".env.local"}
	dirs := []string{"."}
	if dir := filepath.Dir(configPath); dir != "." {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		for _, envFile := range envFiles {
			_ = godotenv.Load(filepath.Join(dir, envFile))
		}
	}
}

// loadConfig prepares env, config and logging for a command.
func loadConfig() (*config.Config, error) {
	loadEnv(opts.configPath)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := logging.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}
	hlog.SetLevel(hlogLevel(cfg.Log.Level))
	return cfg, nil
}

// bootstrap loads the configuration and builds the application.
func bootstrap() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func hlogLevel(level string) hlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return hlog.LevelDebug
	case "warn":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	}
	return hlog.LevelInfo
}
