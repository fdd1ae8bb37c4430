// Package sqlite provides a SQLite preset store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"logsift/internal/config"
	"logsift/internal/filter"
)

const timeFormat = time.RFC3339

// Store is a SQLite-backed config.Store.
type Store struct {
	db   *sql.DB
	path string
}

var _ config.Store = (*Store)(nil)

// NewStore opens (creating if needed) the database at path and runs
// migrations.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create presets directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectPreset = `SELECT id, name, kind, mode, criteria, description, updated_at FROM presets`

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (config.Preset, error) {
	var (
		p                       config.Preset
		id, mode, crit, updated string
	)
	if err := row.Scan(&id, &p.Name, &p.Kind, &mode, &crit, &p.Description, &updated); err != nil {
		return config.Preset{}, err
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return config.Preset{}, fmt.Errorf("parse preset id %q: %w", id, err)
	}
	if p.Mode, err = filter.ParseMode(mode); err != nil {
		return config.Preset{}, fmt.Errorf("preset %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(crit), &p.Criteria); err != nil {
		return config.Preset{}, fmt.Errorf("preset %s criteria: %w", id, err)
	}
	if p.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
		return config.Preset{}, fmt.Errorf("preset %s updated_at: %w", id, err)
	}
	return p, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*config.Preset, error) {
	p, err := scanPreset(s.db.QueryRowContext(ctx, selectPreset+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", err)
	}
	return &p, nil
}

func (s *Store) GetPreset(ctx context.Context, id uuid.UUID) (*config.Preset, error) {
	return s.getOne(ctx, "id = ?", id.String())
}

func (s *Store) FindPreset(ctx context.Context, name string) (*config.Preset, error) {
	return s.getOne(ctx, "name = ? COLLATE NOCASE", strings.TrimSpace(name))
}

func (s *Store) ListPresets(ctx context.Context) ([]config.Preset, error) {
	rows, err := s.db.QueryContext(ctx, selectPreset+" ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	presets := []config.Preset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *Store) PutPreset(ctx context.Context, p config.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	crit, err := json.Marshal(p.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	if p.Criteria == nil {
		crit = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var clash string
	err = tx.QueryRowContext(ctx, `SELECT id FROM presets WHERE name = ? COLLATE NOCASE AND id <> ?`,
		p.Name, p.ID.String()).Scan(&clash)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q", config.ErrDuplicateName, p.Name)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check preset name: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO presets (id, name, kind, mode, criteria, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			mode = excluded.mode,
			criteria = excluded.criteria,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		p.ID.String(), p.Name, p.Kind, p.Mode.String(), string(crit), p.Description,
		p.UpdatedAt.UTC().Format(timeFormat),
	); err != nil {
		return fmt.Errorf("put preset: %w", err)
	}
	return tx.Commit()
}

func (s *Store) DeletePreset(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", config.ErrNotFound, id)
	}
	return nil
}
