package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"logsift/internal/config"
	"logsift/internal/filter"
	"logsift/internal/record"
	"logsift/internal/strategy"
)

func newPresetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preset",
		Aliases: []string{"presets"},
		Short:   "Manage saved filter presets",
	}
	cmd.AddCommand(
		newPresetListCmd(),
		newPresetShowCmd(),
		newPresetSaveCmd(app),
		newPresetDeleteCmd(),
	)
	return cmd
}

func newPresetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}
			store, closer, err := storeFromCmd(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			presets, err := store.ListPresets(cmd.Context())
			if err != nil {
				return err
			}
			if p.structured() {
				return p.encode(presets)
			}
			rows := make([][]string, 0, len(presets))
			for _, ps := range presets {
				rows = append(rows, []string{ps.Name, ps.Kind, ps.Mode.String(), fmt.Sprint(len(ps.Criteria)), ps.Description})
			}
			p.table([]string{"NAME", "KIND", "MODE", "CRITERIA", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func newPresetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}
			ps, err := loadPreset(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			if p.structured() {
				return p.encode(ps)
			}
			pairs := [][2]string{
				{"ID", ps.ID.String()},
				{"Name", ps.Name},
				{"Kind", ps.Kind},
				{"Mode", ps.Mode.String()},
				{"Updated", ps.UpdatedAt.Format(time.RFC3339)},
			}
			if ps.Description != "" {
				pairs = append(pairs, [2]string{"Description", ps.Description})
			}
			for i, c := range ps.Criteria {
				pairs = append(pairs, [2]string{fmt.Sprintf("Criterion %d", i+1), c.String()})
			}
			p.kv(pairs)
			return nil
		},
	}
}

func newPresetSaveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a preset",
		Long: `Save a criteria list under NAME. Criteria are validated against the
record kind before saving; an existing preset with the same name is
replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFromCmd(cmd)
			if err != nil {
				return err
			}
			where, _ := cmd.Flags().GetStringArray("where")
			rawMode, _ := cmd.Flags().GetString("mode")
			desc, _ := cmd.Flags().GetString("description")

			mode, err := filter.ParseMode(rawMode)
			if err != nil {
				return err
			}
			criteria, err := parseForKind(cmd, app, kind, where)
			if err != nil {
				return err
			}

			store, closer, err := storeFromCmd(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			ps, err := savePreset(cmd.Context(), store, args[0], kind, mode, criteria, desc)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved preset %q (%s)\n", ps.Name, ps.ID)
			return nil
		},
	}
	cmd.Flags().StringP("kind", "k", "log", "record kind: log, iis, or rabbit")
	cmd.Flags().StringArrayP("where", "w", nil, "criterion \"Field operator value\" (repeatable)")
	cmd.Flags().String("mode", "and", "combine criteria with and or or")
	cmd.Flags().String("description", "", "free-form description")
	return cmd
}

// savePreset replaces the preset named name, keeping its ID, or creates a
// new one.
func savePreset(ctx context.Context, store config.Store, name string, kind record.Kind, mode filter.Mode, criteria []filter.Criterion, desc string) (config.Preset, error) {
	ps := config.NewPreset(strings.TrimSpace(name), kind, mode, criteria)
	ps.Description = desc

	existing, err := store.FindPreset(ctx, name)
	if err != nil {
		return config.Preset{}, err
	}
	if existing != nil {
		ps.ID = existing.ID
	}
	if err := store.PutPreset(ctx, ps); err != nil {
		return config.Preset{}, err
	}
	return ps, nil
}

// parseForKind parses and validates criteria with the registry of kind.
func parseForKind(cmd *cobra.Command, app *App, kind record.Kind, where []string) ([]filter.Criterion, error) {
	switch kind {
	case record.KindIIS:
		return parseCriteria(cmd, filter.NewService(strategy.NewIISRegistry(), app.Logger), where)
	case record.KindRabbit:
		return parseCriteria(cmd, filter.NewService(strategy.NewRabbitRegistry(), app.Logger), where)
	default:
		return parseCriteria(cmd, filter.NewService(strategy.NewLogRegistry(), app.Logger), where)
	}
}

func parseCriteria[R any](cmd *cobra.Command, svc *filter.Service[R], where []string) ([]filter.Criterion, error) {
	criteria, res := svc.ParseCriteria(where)
	if !res.OK() {
		printValidation(cmd.ErrOrStderr(), res)
		return nil, errInvalidFilter
	}
	return criteria, nil
}

func newPresetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME|ID",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := storeFromCmd(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			id, err := resolvePresetID(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := store.DeletePreset(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted preset %s\n", args[0])
			return nil
		},
	}
}

// resolvePresetID accepts a UUID or a preset name.
func resolvePresetID(ctx context.Context, store config.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	ps, err := store.FindPreset(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	if ps == nil {
		return uuid.Nil, fmt.Errorf("%w: %q", config.ErrNotFound, ref)
	}
	return ps.ID, nil
}
