package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"logsift/internal/config"
	"logsift/internal/filter"
	"logsift/internal/home"
	"logsift/internal/lookup"
	"logsift/internal/parser"
	"logsift/internal/rabbit"
	"logsift/internal/record"
	"logsift/internal/source"
	"logsift/internal/stats"
	"logsift/internal/strategy"
)

// errInvalidFilter is returned after the validation problems were printed.
var errInvalidFilter = errors.New("invalid filter")

type filterOptions struct {
	where     []string
	mode      string
	preset    string
	follow    bool
	fromStart bool
	stats     bool
	buckets   int
	columns   []string
	limit     int
	quiet     bool
	geoip     string
}

func newFilterCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter PATH...",
		Short: "Filter log files and print matching records",
		Long: `Parse the given files, globs (** supported) or remote objects
(s3://, gs://, azblob://) and print the records matching every --where
criterion (or any, with --mode or).

Criteria are written "Field operator value", for example:

  --where "Level atleast warn" --where "Message contains timeout"
  --where "Status in 500,502,503" --where "Timestamp between 2024-06-01..2024-06-02"

Rabbit inputs may be directories of paired message files or JSON-lines
dumps. Run "logsift fields --kind K" for the available fields.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, app, args)
		},
	}

	cmd.Flags().StringP("kind", "k", "log", "record kind: log, iis, or rabbit")
	cmd.Flags().StringArrayP("where", "w", nil, "criterion \"Field operator value\" (repeatable)")
	cmd.Flags().String("mode", "", "combine criteria with and (default) or or")
	cmd.Flags().StringP("preset", "p", "", "start from a saved preset")
	cmd.Flags().BoolP("follow", "f", false, "keep reading as files grow")
	cmd.Flags().Bool("from-start", false, "with --follow, read existing content first")
	cmd.Flags().Bool("stats", false, "print level counts and a time histogram")
	cmd.Flags().Int("buckets", stats.DefaultBuckets, "histogram buckets for --stats")
	cmd.Flags().StringSlice("columns", nil, "fields to print (default depends on kind)")
	cmd.Flags().IntP("limit", "n", 0, "stop after this many matches")
	cmd.Flags().BoolP("quiet", "q", false, "do not print records")
	cmd.Flags().String("geoip", "", "GeoIP database for IIS enrichment (default: <home>/lookups/"+home.GeoIPFile+")")
	return cmd
}

func filterOptionsFromCmd(cmd *cobra.Command) filterOptions {
	var o filterOptions
	o.where, _ = cmd.Flags().GetStringArray("where")
	o.mode, _ = cmd.Flags().GetString("mode")
	o.preset, _ = cmd.Flags().GetString("preset")
	o.follow, _ = cmd.Flags().GetBool("follow")
	o.fromStart, _ = cmd.Flags().GetBool("from-start")
	o.stats, _ = cmd.Flags().GetBool("stats")
	o.buckets, _ = cmd.Flags().GetInt("buckets")
	o.columns, _ = cmd.Flags().GetStringSlice("columns")
	o.limit, _ = cmd.Flags().GetInt("limit")
	o.quiet, _ = cmd.Flags().GetBool("quiet")
	o.geoip, _ = cmd.Flags().GetString("geoip")
	return o
}

func runFilter(cmd *cobra.Command, app *App, args []string) error {
	ctx := cmd.Context()
	opts := filterOptionsFromCmd(cmd)
	p, err := printerFromCmd(cmd)
	if err != nil {
		return err
	}

	kind, err := kindFromCmd(cmd)
	if err != nil {
		return err
	}
	var preset *config.Preset
	if opts.preset != "" {
		if preset, err = loadPreset(ctx, cmd, opts.preset); err != nil {
			return err
		}
		presetKind, _ := preset.RecordKind()
		if !cmd.Flags().Changed("kind") {
			kind = presetKind
		} else if presetKind != kind {
			return fmt.Errorf("preset %q is for %s records, not %s", preset.Name, presetKind, kind)
		}
	}

	inputs, err := expandInputs(args, kind == record.KindRabbit)
	if err != nil {
		return err
	}
	if opts.follow {
		for _, in := range inputs {
			if source.IsRemote(in) {
				return fmt.Errorf("cannot follow remote location %s", in)
			}
		}
	}

	prs := parser.New(app.Logger)
	lines := func(ctx context.Context, loc string) parser.Lines {
		if opts.follow {
			return app.Opener.Follow(ctx, loc, source.FollowOptions{FromStart: opts.fromStart})
		}
		return app.Opener.OpenLines(ctx, loc)
	}

	switch kind {
	case record.KindIIS:
		tables, closeTables, err := iisLookups(cmd, app, opts)
		if err != nil {
			return err
		}
		defer closeTables()
		prs = parser.New(app.Logger, parser.WithEnricher(tables))

		run := pipeline[*record.IISEntry]{
			service: filter.NewService(strategy.NewIISRegistry(), app.Logger),
			schema:  record.IISSchema(),
			ts:      func(e *record.IISEntry) time.Time { return e.Timestamp },
			level:   func(e *record.IISEntry) record.Level { return statusLevel(e.Status) },
		}
		return run.execute(ctx, cmd, p, preset, opts, readAll(ctx, app, inputs, opts.follow, func(ctx context.Context, loc string) iter.Seq2[*record.IISEntry, error] {
			return prs.IIS(ctx, lines(ctx, loc))
		}))

	case record.KindRabbit:
		recon := rabbit.NewReconstructor(app.Logger)
		run := pipeline[*record.RabbitEntry]{
			service: filter.NewService(strategy.NewRabbitRegistry(), app.Logger),
			schema:  record.RabbitSchema(),
			ts:      func(e *record.RabbitEntry) time.Time { return e.Timestamp },
			level:   func(e *record.RabbitEntry) record.Level { return e.Level },
		}
		return run.execute(ctx, cmd, p, preset, opts, readAll(ctx, app, inputs, opts.follow, func(ctx context.Context, loc string) iter.Seq2[*record.RabbitEntry, error] {
			if source.IsDir(loc) {
				if opts.follow {
					return watchRecords(ctx, app, recon, loc)
				}
				return recon.Records(ctx, loc)
			}
			return prs.RabbitJSON(lines(ctx, loc))
		}))

	default:
		run := pipeline[*record.LogEntry]{
			service: filter.NewService(strategy.NewLogRegistry(), app.Logger),
			schema:  record.LogSchema(),
			ts:      func(e *record.LogEntry) time.Time { return e.Timestamp },
			level:   func(e *record.LogEntry) record.Level { return e.Level },
		}
		return run.execute(ctx, cmd, p, preset, opts, readAll(ctx, app, inputs, opts.follow, func(ctx context.Context, loc string) iter.Seq2[*record.LogEntry, error] {
			return prs.Text(lines(ctx, loc))
		}))
	}
}

// readAll reads inputs one after another, or concurrently when following.
func readAll[R any](ctx context.Context, app *App, inputs []string, follow bool, open func(context.Context, string) iter.Seq2[R, error]) iter.Seq2[R, error] {
	if follow {
		return merge(ctx, app.Logger, inputs, open)
	}
	return concat(ctx, app.Logger, inputs, func(loc string) iter.Seq2[R, error] {
		return open(ctx, loc)
	})
}

// watchRecords reconstructs messages as they appear or complete in dir.
func watchRecords(ctx context.Context, app *App, recon *rabbit.Reconstructor, dir string) iter.Seq2[*record.RabbitEntry, error] {
	return func(yield func(*record.RabbitEntry, error) bool) {
		for pf, err := range recon.Detector().Watch(ctx, dir) {
			if err != nil {
				yield(nil, err)
				return
			}
			entry, err := recon.Reconstruct(pf)
			if err != nil {
				app.Logger.Debug("message not reconstructable yet", "id", pf.MessageID, "status", pf.Describe(), "error", err)
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// iisLookups builds the enrichment tables. The GeoIP table is loaded from
// --geoip, or from the home directory when a database is present there.
func iisLookups(cmd *cobra.Command, app *App, opts filterOptions) (lookup.Registry, func(), error) {
	tables := lookup.Registry{lookup.TableUserAgent: lookup.NewUserAgent()}

	path := opts.geoip
	if path == "" {
		hd, err := homeFromCmd(cmd)
		if err != nil {
			return nil, nil, err
		}
		path = hd.GeoIPPath()
		if _, err := os.Stat(path); err != nil {
			app.Logger.Debug("no GeoIP database, skipping country and city", "path", path)
			return tables, func() {}, nil
		}
	}

	geo := lookup.NewGeoIP(app.Logger)
	if _, err := geo.Load(path); err != nil {
		return nil, nil, err
	}
	if opts.follow {
		if err := geo.WatchFile(path); err != nil {
			app.Logger.Warn("GeoIP database will not reload", "path", path, "error", err)
		}
	}
	tables[lookup.TableGeoIP] = geo
	return tables, geo.Close, nil
}

// statusLevel maps an HTTP status to a severity for statistics.
func statusLevel(status int) record.Level {
	switch {
	case status >= 500:
		return record.LevelError
	case status >= 400:
		return record.LevelWarn
	case status >= 0:
		return record.LevelInfo
	default:
		return record.LevelUnknown
	}
}

// pipeline is the per-kind wiring of one filter run.
type pipeline[R any] struct {
	service *filter.Service[R]
	schema  *record.Schema[R]
	ts      func(R) time.Time
	level   func(R) record.Level
}

// criteria combines the preset with --where and --mode. Every problem in
// either is collected into the returned result.
func (pl pipeline[R]) criteria(preset *config.Preset, opts filterOptions) ([]filter.Criterion, filter.Mode, filter.ValidationResult, error) {
	var (
		criteria []filter.Criterion
		res      filter.ValidationResult
	)
	mode := filter.ModeAnd
	if preset != nil {
		criteria = append(criteria, preset.Criteria...)
		mode = preset.Mode
		res = pl.service.Validate(criteria)
	}
	if opts.mode != "" {
		m, err := filter.ParseMode(opts.mode)
		if err != nil {
			return nil, 0, res, err
		}
		mode = m
	}
	parsed, parseRes := pl.service.ParseCriteria(opts.where)
	res.Append(parseRes, len(criteria))
	return append(criteria, parsed...), mode, res, nil
}

func (pl pipeline[R]) execute(ctx context.Context, cmd *cobra.Command, p *printer, preset *config.Preset, opts filterOptions, src iter.Seq2[R, error]) error {
	criteria, mode, res, err := pl.criteria(preset, opts)
	if err != nil {
		return err
	}
	if !res.OK() {
		printValidation(cmd.ErrOrStderr(), res)
		return errInvalidFilter
	}
	out, err := pl.service.Apply(ctx, criteria, mode, src)
	if err != nil {
		var invalid *filter.InvalidCriteriaError
		if errors.As(err, &invalid) {
			printValidation(cmd.ErrOrStderr(), invalid.Result)
			return errInvalidFilter
		}
		return err
	}

	var summary *stats.Summary
	if opts.stats {
		summary = stats.NewSummary()
		out = stats.Observe(summary, out, pl.ts, pl.level)
	}

	var rw *recordWriter[R]
	if !opts.quiet {
		batch := 256
		if opts.follow {
			batch = 1
		}
		if rw, err = newRecordWriter(p, pl.schema, opts.columns, batch); err != nil {
			return err
		}
	}

	matched := 0
	for r, err := range out {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			if rw != nil {
				_ = rw.flush()
			}
			return err
		}
		matched++
		if rw != nil {
			if err := rw.write(r); err != nil {
				return err
			}
		}
		if opts.limit > 0 && matched >= opts.limit {
			break
		}
	}
	if rw != nil {
		if err := rw.flush(); err != nil {
			return err
		}
	}

	if summary != nil {
		return printSummary(p, summary, opts.buckets)
	}
	return nil
}

// printValidation writes one line per rejected criterion.
func printValidation(w io.Writer, res filter.ValidationResult) {
	_, _ = fmt.Fprintf(w, "invalid filter (%d problem%s):\n", len(res.Errors), plural(len(res.Errors)))
	for _, e := range res.Errors {
		what := strings.TrimSpace(e.Field + " " + e.Operator)
		_, _ = fmt.Fprintf(w, "  %d. %s: %s\n", e.Index+1, what, e.Reason)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func loadPreset(ctx context.Context, cmd *cobra.Command, name string) (*config.Preset, error) {
	store, closer, err := storeFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	preset, err := store.FindPreset(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if preset == nil {
		return nil, fmt.Errorf("%w: %q", config.ErrNotFound, name)
	}
	return preset, nil
}
