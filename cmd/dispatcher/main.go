// Package main is the entry point for the request dispatcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/avadispatch/internal/config"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags. Empty log settings defer to the
// configuration file.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	bootstrap := initLogger(flags)

	cfg, path, err := loadConfig(flags.configPath)
	if err != nil {
		bootstrap.Fatal("failed to load configuration",
			observability.String("config", flags.configPath),
			observability.Error(err),
		)
	}
	applyLogFlags(cfg, flags)

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, path)
	if err != nil {
		bootstrap.Fatal("failed to initialize dispatcher", observability.Error(err))
	}

	if err := app.start(ctx); err != nil {
		app.logger.Error("failed to start dispatcher", observability.Error(err))
		app.shutdown(context.Background())
		os.Exit(1)
	}

	waitForShutdown(app)
}

// parseFlags parses command line flags, taking defaults from the environment.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("DISPATCHER_CONFIG_PATH", "dispatcher.yaml"),
		"Path to configuration file")
	fs.StringVar(&f.logLevel, "log-level", getEnvOrDefault("DISPATCHER_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	fs.StringVar(&f.logFormat, "log-format", getEnvOrDefault("DISPATCHER_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	_ = fs.Parse(args)
	return f
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("avadispatch version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger creates the logger used until the configuration is loaded.
func initLogger(flags cliFlags) observability.Logger {
	cfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadConfig resolves, loads and validates the configuration file.
func loadConfig(path string) (*config.Config, string, error) {
	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadAndValidate(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

// applyLogFlags lets explicit log flags win over the file.
func applyLogFlags(cfg *config.Config, flags cliFlags) {
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
}
