package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cableworks/backend/internal/rope"
)

// Preset is a named, persisted rope configuration. The config itself is
// stored as JSONB so new Config fields never need a schema change.
type Preset struct {
	ID          int             `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Config      json.RawMessage `db:"config" json:"config"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// RopeConfig decodes the stored JSONB into a rope.Config.
func (p *Preset) RopeConfig() (rope.Config, error) {
	cfg := rope.DefaultConfig()
	if err := json.Unmarshal(p.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("preset %d has invalid config: %w", p.ID, err)
	}
	return cfg, nil
}

// PresetStore wraps preset persistence. All methods are safe with a nil
// receiver guard at the call site; the server runs preset-less when no
// database is configured.
type PresetStore struct {
	db *sqlx.DB
}

func NewPresetStore(db *sqlx.DB) *PresetStore {
	return &PresetStore{db: db}
}

// List returns all presets ordered by name.
func (s *PresetStore) List() ([]Preset, error) {
	var presets []Preset
	err := s.db.Select(&presets, `SELECT id, name, description, config, created_at, updated_at FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}

// Get fetches a single preset by ID. Returns sql.ErrNoRows when absent.
func (s *PresetStore) Get(id int) (*Preset, error) {
	var p Preset
	err := s.db.Get(&p, `SELECT id, name, description, config, created_at, updated_at FROM presets WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByName fetches a preset by its unique name.
func (s *PresetStore) GetByName(name string) (*Preset, error) {
	var p Preset
	err := s.db.Get(&p, `SELECT id, name, description, config, created_at, updated_at FROM presets WHERE name=$1`, name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a preset. The config is validated by round-tripping it
// through rope.Config before it is stored.
func (s *PresetStore) Create(name, description string, cfg rope.Config) (*Preset, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	var p Preset
	err = s.db.Get(&p, `
		INSERT INTO presets (name, description, config, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, name, description, config, created_at, updated_at`,
		name, description, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset: %w", err)
	}
	return &p, nil
}

// Update replaces a preset's description and config.
func (s *PresetStore) Update(id int, description string, cfg rope.Config) (*Preset, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	var p Preset
	err = s.db.Get(&p, `
		UPDATE presets SET description=$2, config=$3, updated_at=NOW()
		WHERE id=$1
		RETURNING id, name, description, config, created_at, updated_at`,
		id, description, raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a preset. Returns sql.ErrNoRows when it did not exist.
func (s *PresetStore) Delete(id int) error {
	res, err := s.db.Exec(`DELETE FROM presets WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
