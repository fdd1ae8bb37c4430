package file

import (
	"encoding/json"
	"fmt"
	"os"
)

// migration transforms a presets file from one version to the next.
type migration struct {
	from    int
	to      int
	migrate func(raw json.RawMessage) (json.RawMessage, error)
}

// migrations is the ordered list of file migrations. Version 1 is the
// initial format.
var migrations []migration

// migrateFile runs the migrations from fromVersion up to currentVersion,
// backing up the file before each step.
func migrateFile(path string, data []byte, fromVersion int) error {
	return migrateWith(migrations, path, data, fromVersion, currentVersion)
}

func migrateWith(steps []migration, path string, data []byte, fromVersion, toVersion int) error {
	current := fromVersion
	for _, m := range steps {
		if m.from != current {
			continue
		}

		backupPath := fmt.Sprintf("%s.v%d.bak", path, current)
		if err := os.WriteFile(backupPath, data, 0o600); err != nil {
			return fmt.Errorf("backup before migration v%d→v%d: %w", m.from, m.to, err)
		}

		migrated, err := m.migrate(json.RawMessage(data))
		if err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", m.from, m.to, err)
		}

		tmpPath := path + ".tmp"
		if err := os.WriteFile(tmpPath, migrated, 0o600); err != nil {
			return fmt.Errorf("write migrated presets: %w", err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("rename migrated presets: %w", err)
		}

		data = migrated
		current = m.to
	}

	if current != toVersion {
		return fmt.Errorf("no migration path from version %d to %d", fromVersion, toVersion)
	}
	return nil
}
