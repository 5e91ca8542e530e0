package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
	"m365console/internal/config"
	"m365console/internal/monitor"
)

const toolName = "consolectl"

// errFaultsFound makes the process exit 1 without printing an error line;
// the command has already reported the faults.
var errFaultsFound = errors.New("faults found")

type globalOptions struct {
	configFile string
	rootDir    string
	verbose    bool
	logLevel   string
}

// app is the state shared by all subcommands once the config is loaded.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	layout   monitor.Layout
	registry *prometheus.Registry
	// configErr is set when the config failed validation and defaults are
	// in use so the fault monitor can still report and repair it.
	configErr error
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           toolName,
		Short:         "Self-healing Microsoft 365 management console",
		Long:          `consolectl connects app registrations to Microsoft 365 services and keeps the console installation healthy by detecting and repairing faults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is <root>/config/console.yaml)")
	flags.StringVar(&opts.rootDir, "root", "", "console root directory (default is $CONSOLE_ROOTDIR or .)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")

	rootCmd.AddCommand(
		newCheckCommand(a),
		newRunCommand(a),
		newRepairCommand(a),
		newStatusCommand(a),
		newConnectCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

func (a *app) init(opts *globalOptions) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	loadOpts := config.LoadOptions{
		ConfigFile: opts.configFile,
		RootDir:    opts.rootDir,
	}
	if opts.logLevel != "" {
		loadOpts.Overrides = map[string]any{config.LOG_LEVEL: opts.logLevel}
	}

	cfg, err := config.Load(loadOpts)
	if err != nil {
		if !errors.Is(err, errs.ErrConfig) {
			return err
		}
		a.configErr = err
		cfg = fallbackConfig(opts)
	}

	a.cfg = cfg
	a.log = logger.SetupLogger(opts.verbose, cfg.LogLevel, cfg.LogFormat)
	a.layout = monitor.Layout{Root: cfg.RootDir, ConfigPath: opts.configFile}
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, w := range cfg.Warnings {
		logger.LogWarn(a.log, "Config warning", "warning", w)
	}
	if a.configErr != nil {
		logger.LogWarn(a.log, "Config is invalid, continuing with defaults", "error", a.configErr)
	}
	logger.LogDebug(a.log, "Config loaded", "config", cfg.String())
	return nil
}

// fallbackConfig is used when the config on disk does not validate.
func fallbackConfig(opts *globalOptions) *config.Config {
	cfg := config.NewConfig()
	root := opts.rootDir
	if root == "" {
		root = os.Getenv(config.ENV_PREFIX + "_ROOTDIR")
	}
	if root != "" {
		cfg.RootDir = root
	}
	if abs, err := filepath.Abs(cfg.RootDir); err == nil {
		cfg.RootDir = abs
	}
	cfg.ConfigFile = opts.configFile
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = config.DefaultConfigPath(cfg.RootDir)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg
}

// requireValidConfig is for commands that cannot run on defaults.
func (a *app) requireValidConfig() error {
	if a.configErr != nil {
		return fmt.Errorf("%w (run \"%s repair\" to restore a valid config)", a.configErr, toolName)
	}
	return nil
}
