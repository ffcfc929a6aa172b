package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mqtt-tools/hivemq-tui/internal/cache"
	"github.com/mqtt-tools/hivemq-tui/internal/config"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

const appName = "hivemq-tui"

// NewRootCommand creates the hivemq-tui root command with its persistent
// flags and subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Browse and edit HiveMQ broker resources",
		Long: `hivemq-tui browses the collections of a HiveMQ REST API (clients, Data Hub
policies, schemas, scripts, backups and trace recordings) in a terminal UI.

Settings are read from $XDG_CONFIG_HOME/hivemq-tui/config.yaml and can be
overridden with the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		// Without a subcommand the terminal UI starts with every resource.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUICommand(cmd, nil)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default $XDG_CONFIG_HOME/hivemq-tui/config.yaml)")
	pf.String("endpoint", "", "HiveMQ REST API endpoint (default "+config.DefaultEndpoint+")")
	pf.String("token", "", "Bearer token sent with every request")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.Int("page-size", 0, "Items requested per page when loading a collection")
	pf.Duration("timeout", 0, "Per-request timeout (e.g. 10s)")
	pf.Bool("regex", false, "Treat filter patterns as regular expressions")
	pf.Bool("case-sensitive", false, "Match filter patterns case-sensitively")
	pf.String("cache", "", "Cache backend: memory or sqlite")
	pf.String("cache-path", "", "SQLite cache file (in memory when empty)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file")
	pf.BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		NewTUICommand(),
		NewListCommand(),
		NewResourcesCommand(),
		NewVersionCommand(),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := getPersistentStringFlag(cmd, "config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	applyFlags(cmd, &cfg)
	config.EnsureDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v := getPersistentStringFlag(cmd, "endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if v := getPersistentStringFlag(cmd, "token"); v != "" {
		cfg.Token = v
	}
	if flagChanged(cmd, "insecure") {
		cfg.Insecure = getPersistentBoolFlag(cmd, "insecure")
	}
	if v := getPersistentIntFlag(cmd, "page-size"); v > 0 {
		cfg.PageSize = v
	}
	if v := getPersistentDurationFlag(cmd, "timeout"); v > 0 {
		cfg.Timeout.Duration = v
	}
	if flagChanged(cmd, "regex") {
		cfg.Filter.Mode = cache.MatchSubstring.String()
		if getPersistentBoolFlag(cmd, "regex") {
			cfg.Filter.Mode = cache.MatchRegex.String()
		}
	}
	if flagChanged(cmd, "case-sensitive") {
		cfg.Filter.CaseSensitive = getPersistentBoolFlag(cmd, "case-sensitive")
	}
	if v := getPersistentStringFlag(cmd, "cache"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := getPersistentStringFlag(cmd, "cache-path"); v != "" {
		cfg.Cache.Path = v
	}
	if v := getPersistentStringFlag(cmd, "log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := getPersistentStringFlag(cmd, "log-file"); v != "" {
		cfg.Log.File = v
	}
	if getPersistentBoolFlag(cmd, "verbose") {
		cfg.Log.Level = "debug"
	}
}

// newLogger builds the logger described by cfg.Log. Entries go to the log
// file when one is configured, otherwise to fallback. The returned close
// function releases the file.
func newLogger(cfg config.Config, fallback io.Writer) (*logger.Logger, func() error, error) {
	out := fallback
	closeFn := func() error { return nil }
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}
	log := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: appName,
		Version:   Version,
		Output:    out,
	})
	return log, closeFn, nil
}

func matchOptions(cfg config.Config) (cache.MatchOptions, error) {
	mode, err := cache.ParseMatchMode(cfg.Filter.Mode)
	if err != nil {
		return cache.MatchOptions{}, err
	}
	return cache.MatchOptions{Mode: mode, CaseSensitive: cfg.Filter.CaseSensitive}, nil
}

// getPersistentStringFlag reads a string flag from the command or its parents.
func getPersistentStringFlag(cmd *cobra.Command, name string) string {
	val, _ := cmd.Flags().GetString(name)
	if val != "" {
		return val
	}
	// Try persistent flags from parent
	if cmd.HasParent() {
		val, _ = cmd.Root().PersistentFlags().GetString(name)
	}
	return val
}

// getPersistentBoolFlag reads a bool flag from the command or its parents.
func getPersistentBoolFlag(cmd *cobra.Command, name string) bool {
	if val, err := cmd.Flags().GetBool(name); err == nil && val {
		return true
	}
	val, _ := cmd.Root().PersistentFlags().GetBool(name)
	return val
}

func getPersistentIntFlag(cmd *cobra.Command, name string) int {
	if val, err := cmd.Flags().GetInt(name); err == nil && val != 0 {
		return val
	}
	val, _ := cmd.Root().PersistentFlags().GetInt(name)
	return val
}

func getPersistentDurationFlag(cmd *cobra.Command, name string) time.Duration {
	if val, err := cmd.Flags().GetDuration(name); err == nil && val != 0 {
		return val
	}
	val, _ := cmd.Root().PersistentFlags().GetDuration(name)
	return val
}

// flagChanged reports whether name was set on the command line.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	f := cmd.Root().PersistentFlags().Lookup(name)
	return f != nil && f.Changed
}

func getStringFlag(cmd *cobra.Command, name string) string {
	val, _ := cmd.Flags().GetString(name)
	return val
}
