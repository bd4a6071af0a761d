package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echolens/echolens/internal/config"
)

// Configuration is a named, persisted run configuration.
type Configuration struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	Config    config.Config `json:"config"`
}

// SaveConfiguration persists a named configuration, replacing any previous
// one with the same name.
func (s *Store) SaveConfiguration(ctx context.Context, name string, cfg *config.Config) (*Configuration, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}

	record := &Configuration{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Config:    *cfg,
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO configurations (id, name, created_at, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		record.ID, record.Name, record.CreatedAt.Format(time.RFC3339), string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("save configuration: %w", err)
	}
	return record, nil
}

// ListConfigurations returns saved configurations, newest first.
func (s *Store) ListConfigurations(ctx context.Context) ([]Configuration, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, created_at, payload FROM configurations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var configs []Configuration
	for rows.Next() {
		var (
			c         Configuration
			createdAt string
			payload   string
		)
		if err := rows.Scan(&c.ID, &c.Name, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if err := json.Unmarshal([]byte(payload), &c.Config); err != nil {
			return nil, fmt.Errorf("decode configuration: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// GetConfiguration returns one saved configuration by name.
func (s *Store) GetConfiguration(ctx context.Context, name string) (*Configuration, error) {
	var (
		c         Configuration
		createdAt string
		payload   string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at, payload FROM configurations WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &createdAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(payload), &c.Config); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &c, nil
}

// DeleteConfiguration removes one saved configuration by name.
func (s *Store) DeleteConfiguration(ctx context.Context, name string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM configurations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
