package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"logsift/internal/rabbit"
)

func newRabbitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rabbit",
		Short: "Inspect directories of paired RabbitMQ message files",
	}
	cmd.PersistentFlags().Int("workers", 0, "files sniffed concurrently (default: GOMAXPROCS)")
	cmd.AddCommand(newRabbitScanCmd(app), newRabbitWatchCmd(app))
	return cmd
}

func detectorFromCmd(cmd *cobra.Command, app *App) *rabbit.Detector {
	workers, _ := cmd.Flags().GetInt("workers")
	return rabbit.NewDetector(app.Logger, rabbit.WithWorkers(workers))
}

func pairRow(pf rabbit.PairedFile) []string {
	row := []string{pf.MessageID, pf.Describe(), dash(pf.MainPath), dash(pf.HeadersPath)}
	if pf.Err != nil {
		row = append(row, pf.Err.Error())
	} else {
		row = append(row, "")
	}
	return row
}

var pairHeader = []string{"MESSAGE ID", "STATUS", "MAIN", "HEADERS", "ERROR"}

func newRabbitScanCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scan DIR",
		Short: "Pair message files and report their status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}
			det := detectorFromCmd(cmd, app)

			var pairs []rabbit.PairedFile
			counts := make(map[rabbit.Status]int)
			for pf, err := range det.DetectPairedFiles(cmd.Context(), args[0]) {
				if err != nil {
					return err
				}
				pairs = append(pairs, pf)
				counts[pf.Status]++
			}

			if p.structured() {
				return p.encode(pairs)
			}
			rows := make([][]string, 0, len(pairs))
			for _, pf := range pairs {
				rows = append(rows, pairRow(pf))
			}
			p.table(pairHeader, rows)

			_, _ = p.w.Write([]byte("\n"))
			var summary [][2]string
			for _, s := range []rabbit.Status{rabbit.StatusComplete, rabbit.StatusUnifiedJSON, rabbit.StatusPartial, rabbit.StatusFailed} {
				summary = append(summary, [2]string{s.String(), strconv.Itoa(counts[s])})
			}
			p.kv(summary)
			return nil
		},
	}
}

func newRabbitWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Report message files as they arrive or complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}
			poll, _ := cmd.Flags().GetDuration("poll")
			workers, _ := cmd.Flags().GetInt("workers")
			det := rabbit.NewDetector(app.Logger, rabbit.WithWorkers(workers), rabbit.WithPollInterval(poll))

			for pf, err := range det.Watch(cmd.Context(), args[0]) {
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if p.structured() {
					if err := p.encode(pf); err != nil {
						return err
					}
					continue
				}
				p.table(nil, [][]string{pairRow(pf)})
			}
			return nil
		},
	}
	cmd.Flags().Duration("poll", rabbit.DefaultPollInterval, "rescan interval in case notifications are missed (0 disables)")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
