// Package commands implements the protoforge command line.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/protoforge"
	"github.com/hupe1980/protoforge/config"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/printer"
	"github.com/hupe1980/protoforge/logging"
)

var versionString = "dev"

// newApp builds the application; tests replace it to inject a stub model.
var newApp = func(cfg *config.Config, logger logging.Logger) *protoforge.Protoforge {
	return protoforge.New(cfg, func(o *protoforge.Options) {
		o.Logger = logger
	})
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "protoforge",
		Short: "Protoforge - turn an idea into an HTML prototype",
		Long: `Protoforge chains five language-model agents (discovery, structure,
design, implementation, refinement) to turn one natural-language idea
into a finished single-page HTML prototype.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $PROTOFORGE_CONFIG or "+config.DefaultPath+")")

	root.AddCommand(
		newServeCommand(&configPath),
		newRunCommand(&configPath),
		newInvokeCommand(&configPath),
		newAgentsCommand(&configPath),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, printer.Error("Invalid configuration", err.Error(), []string{
			"Check the file named by --config or PROTOFORGE_CONFIG",
		})
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// setup loads config and builds a ready application.
func setup(configPath string) (*protoforge.Protoforge, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	app := newApp(cfg, newLogger(cfg))
	if err := app.Ready(); err != nil {
		_ = app.Close()
		return nil, unavailableError(err)
	}
	return app, nil
}

func unavailableError(err error) error {
	return printer.Error("Pipeline unavailable", err.Error(), []string{
		"Export OPENAI_API_KEY (or ANTHROPIC_API_KEY with provider anthropic)",
		"Set the key in the config file under provider",
	})
}

func failure(title string, err error) error {
	var hint []string
	switch core.KindOf(err) {
	case core.KindUnknownAgent:
		hint = []string{"Run 'protoforge agents' to list the available agents"}
	case core.KindProvider:
		hint = []string{"Check network access to the provider and retry"}
	}
	return printer.Error(title, err.Error(), hint)
}
