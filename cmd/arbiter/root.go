package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

// defaultConfigFile is read when present and --config is not given.
const defaultConfigFile = "arbiter.yaml"

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - governed case decisioning",
	Long: `Arbiter evaluates healthcare appeals and financial-crime cases through
fixed stage pipelines and a governance gate.

Each case ends APPROVED, DENIED or escalated to a human reviewer. Escalated
cases resume once the review is submitted. Every stage milestone, escalation
and review is recorded in an append-only audit trail.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json, csv)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads the configuration and installs the configured logger. A
// missing default config file means built-in defaults.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	if err := config.Initialize(path); err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	cfg := config.GetConfig()

	logCfg := logging.FromConfig(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if verbose {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logCfg); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return cfg, nil
}

// formatter returns the formatter selected by --format.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}
