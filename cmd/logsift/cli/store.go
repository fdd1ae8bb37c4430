package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"logsift/internal/config"
	configfile "logsift/internal/config/file"
	configmem "logsift/internal/config/memory"
	configsqlite "logsift/internal/config/sqlite"
	"logsift/internal/home"
)

// openPresetStore opens the preset store selected by storeType in hd.
// The returned closer is never nil.
func openPresetStore(hd home.Dir, storeType string) (config.Store, io.Closer, error) {
	switch storeType {
	case "memory":
		return configmem.NewStore(), io.NopCloser(nil), nil
	case "json":
		if err := hd.EnsureExists(); err != nil {
			return nil, nil, err
		}
		return configfile.NewStore(hd.PresetsPath(storeType)), io.NopCloser(nil), nil
	case "sqlite":
		if err := hd.EnsureExists(); err != nil {
			return nil, nil, err
		}
		s, err := configsqlite.NewStore(hd.PresetsPath(storeType))
		if err != nil {
			return nil, nil, fmt.Errorf("open preset database: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown config type %q (want json, sqlite, or memory)", storeType)
	}
}

// storeFromCmd opens the preset store named by the persistent flags.
func storeFromCmd(cmd *cobra.Command) (config.Store, io.Closer, error) {
	hd, err := homeFromCmd(cmd)
	if err != nil {
		return nil, nil, err
	}
	storeType, _ := cmd.Flags().GetString("config-type")
	return openPresetStore(hd, storeType)
}
