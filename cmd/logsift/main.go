// Command logsift filters and summarizes text, IIS and RabbitMQ logs.
//
// Logging:
//   - Base logger is created here and passed to all components
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own "component" attribute
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"logsift/cmd/logsift/cli"
	"logsift/internal/logging"
	"logsift/internal/source"
)

var version = "dev"

func main() {
	// Allow all levels; filtering is done by ComponentFilterHandler.
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:           "logsift",
		Short:         "Filter and summarize log files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app := &cli.App{
		Logger: logger,
		Levels: filterHandler,
		Opener: source.NewOpener(source.RemoteConfigFromEnv(), logger),
	}
	cli.AddCommands(rootCmd, app)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		cancel()
		os.Exit(1)
	}
}
