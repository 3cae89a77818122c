package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rickgao/ddp-client/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	endpoint   string
	socket     string
	logLevel   string
	logFormat  string
	metrics    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ddpctl",
		Short:         "Call methods, follow subscriptions and run queries against a DDP server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or TOML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config, ignored if missing")
	flags.StringVarP(&opts.endpoint, "endpoint", "e", "", "server endpoint, overrides session.endpoint")
	flags.StringVar(&opts.socket, "socket", "", "socket id, overrides session.socket_id")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error, overrides log.level")
	flags.StringVar(&opts.logFormat, "log-format", "", "text or json, overrides log.format")
	flags.BoolVar(&opts.metrics, "metrics", false, "serve Prometheus metrics, overrides metrics.enabled")

	cmd.AddCommand(
		newCallCommand(opts),
		newSubCommand(opts),
		newQueryCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// load reads the dotenv file and config, applies flag overrides and builds
// the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	var cfg *config.Config
	if o.configPath != "" {
		loaded, err := config.LoadWithDefaults(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if o.endpoint != "" {
		cfg.Session.Endpoint = o.endpoint
	}
	if o.socket != "" {
		cfg.Session.SocketID = o.socket
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Metrics.Enabled = o.metrics
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	o.cfg = cfg
	o.logger = newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(o.logger)
	return nil
}
