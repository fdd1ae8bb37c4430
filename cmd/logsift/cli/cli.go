// Package cli implements the logsift subcommand tree.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"logsift/internal/home"
	"logsift/internal/logging"
	"logsift/internal/record"
	"logsift/internal/source"
)

// App carries the process-wide dependencies shared by all commands.
type App struct {
	Logger *slog.Logger
	Levels *logging.ComponentFilterHandler
	Opener *source.Opener
}

// AddCommands registers every logsift subcommand on root, along with the
// persistent flags they read.
func AddCommands(root *cobra.Command, app *App) {
	root.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	root.PersistentFlags().String("config-type", "json", "preset store type: json, sqlite, or memory")
	root.PersistentFlags().StringP("output", "o", "table", "output format: table, json, or msgpack")
	root.PersistentFlags().String("log-level", "info", "minimum log level: debug, info, warn, error")
	root.PersistentFlags().StringSlice("debug-component", nil, "components to log at debug level (e.g. filter, rabbit-detector)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.configureLogging(cmd)
	}

	root.AddCommand(
		newFilterCmd(app),
		newFieldsCmd(),
		newRabbitCmd(app),
		newPresetCmd(app),
		newLookupCmd(),
	)
}

func (app *App) configureLogging(cmd *cobra.Command) error {
	if app.Levels == nil {
		return nil
	}
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	app.Levels.SetDefaultLevel(level)

	components, _ := cmd.Flags().GetStringSlice("debug-component")
	for _, c := range components {
		app.Levels.SetLevel(c, slog.LevelDebug)
	}
	return nil
}

// outputFormat reads the --output persistent flag.
func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

// homeFromCmd resolves the --home flag.
func homeFromCmd(cmd *cobra.Command) (home.Dir, error) {
	root, _ := cmd.Flags().GetString("home")
	return home.Resolve(root)
}

func kindFromCmd(cmd *cobra.Command) (record.Kind, error) {
	raw, _ := cmd.Flags().GetString("kind")
	k, ok := record.ParseKind(raw)
	if !ok {
		return 0, fmt.Errorf("unknown kind %q (want log, iis, or rabbit)", raw)
	}
	return k, nil
}

// Reported reports whether err was already described to the user, so
// main only needs to set the exit status.
func Reported(err error) bool {
	return errors.Is(err, errInvalidFilter)
}
