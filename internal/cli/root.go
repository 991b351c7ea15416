// Package cli implements the teardownctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleitonmarx/teardown"
	"github.com/cleitonmarx/teardown/config"
	"github.com/cleitonmarx/teardown/internal/logger"
	"github.com/cleitonmarx/teardown/phase"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

// envPrefix prefixes the environment variables read by teardownctl.
const envPrefix = "TEARDOWN"

// Settings are the persistent options shared by every command. Each one can be set
// by flag or by environment variable, flags taking precedence.
type Settings struct {
	ConfigFile string `config:"TEARDOWN_CONFIG" default:""`
	Builtin    bool   `config:"TEARDOWN_BUILTIN" default:"false"`
	LogLevel   string `config:"TEARDOWN_LOG_LEVEL" default:"info"`
	LogEncoder string `config:"TEARDOWN_LOG_ENCODER" default:"console"`
	LogFile    string `config:"TEARDOWN_LOG_FILE" default:""`
}

var errNoPhases = errors.New("no phases to work with: pass --config or --builtin")

// NewCommand creates the teardownctl root command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teardownctl",
		Short: "Inspect and rehearse phased shutdown plans",
		Long: `Inspect and rehearse phased shutdown plans.

A plan is a phase document in TOML, YAML or JSON listing the shutdown phases,
their dependencies, timeouts and recovery policy. The built-in service phases
can be used on their own or merged under a document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "phase document (.toml, .yaml, .yml or .json)")
	cmd.PersistentFlags().Bool("builtin", false, "include the built-in service shutdown phases")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-encoder", "console", "log encoder: console or json")
	cmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file, rotated by size")

	cmd.AddCommand(
		newValidateCommand(),
		newOrderCommand(),
		newGraphCommand(),
		newSimulateCommand(),
	)
	return cmd
}

// loadSettings reads the persistent options through the config provider chain.
func loadSettings(cmd *cobra.Command) (Settings, error) {
	config.SetGlobalProvider(config.NewCompositeProvider(
		config.NewFlagProvider(cmd.Flags(), envPrefix),
		config.NewEnvVarProvider(),
	))

	var s Settings
	if err := config.LoadStruct(commandContext(cmd), &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// loadPhases decodes the configured document, merged over the built-in phases when requested.
func loadPhases(s Settings) (config.Document, error) {
	doc := config.Document{DefaultTimeout: phase.DefaultTimeout, Phases: phase.Set{}}
	if s.ConfigFile == "" && !s.Builtin {
		return doc, errNoPhases
	}
	if s.ConfigFile != "" {
		var err error
		if doc, err = config.LoadPhasesFile(s.ConfigFile); err != nil {
			return doc, err
		}
	}
	if s.Builtin {
		doc.Phases = phase.Builtin().Merge(doc.Phases)
	}
	return doc, nil
}

func newLogger(cmd *cobra.Command, s Settings) (logr.Logger, error) {
	return logger.New(logger.Config{
		Level:   s.LogLevel,
		Encoder: s.LogEncoder,
		File:    s.LogFile,
		Output:  cmd.ErrOrStderr(),
	})
}

// setup loads settings, the phase document and the logger for a command.
func setup(cmd *cobra.Command) (config.Document, logr.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return config.Document{}, logr.Logger{}, err
	}
	log, err := newLogger(cmd, s)
	if err != nil {
		return config.Document{}, logr.Logger{}, err
	}
	doc, err := loadPhases(s)
	if err != nil {
		return config.Document{}, logr.Logger{}, err
	}
	return doc, log, nil
}

func newCoordinator(doc config.Document, opts ...teardown.Option) *teardown.Coordinator {
	opts = append([]teardown.Option{teardown.WithDefaultTimeout(doc.DefaultTimeout)}, opts...)
	return teardown.New(doc.Phases, opts...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a phase document for errors and dependency cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}

func newOrderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the order in which the phases would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, _, err := setup(cmd)
			if err != nil {
				return err
			}
			report, err := newCoordinator(doc).Report()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, p := range report.Phases {
				onFailure := "continue"
				if !p.Recover {
					onFailure = "abort"
				}
				if _, err := fmt.Fprintf(out, "%d. %s timeout=%s on-failure=%s\n", i+1, p.Name, p.Timeout, onFailure); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
