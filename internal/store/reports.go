package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echolens/echolens/internal/visibility"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Report is one persisted analysis run.
type Report struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	CreatedAt     time.Time                 `json:"created_at"`
	ClientBrand   string                    `json:"client_brand"`
	PromptCount   int                       `json:"prompt_count"`
	ProviderCount int                       `json:"provider_count"`
	Results       []visibility.PromptResult `json:"results,omitempty"`
}

// SaveReport persists a run's results and returns the stored report.
func (s *Store) SaveReport(ctx context.Context, name, clientBrand string, results []visibility.PromptResult) (*Report, error) {
	providerCount := 0
	if len(results) > 0 {
		providerCount = len(results[0].Results)
	}

	report := &Report{
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     time.Now().UTC(),
		ClientBrand:   clientBrand,
		PromptCount:   len(results),
		ProviderCount: providerCount,
		Results:       results,
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO reports (id, name, created_at, client_brand, prompt_count, provider_count, results)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Name, report.CreatedAt.Format(time.RFC3339), report.ClientBrand,
		report.PromptCount, report.ProviderCount, string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return report, nil
}

// ListReports returns report summaries, newest first, without results.
func (s *Store) ListReports(ctx context.Context) ([]Report, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, created_at, client_brand, prompt_count, provider_count
		 FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var reports []Report
	for rows.Next() {
		var (
			r         Report
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Name, &createdAt, &r.ClientBrand, &r.PromptCount, &r.ProviderCount); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReport returns one report with its full results.
func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	var (
		r         Report
		createdAt string
		payload   string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at, client_brand, prompt_count, provider_count, results
		 FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &createdAt, &r.ClientBrand, &r.PromptCount, &r.ProviderCount, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(payload), &r.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &r, nil
}

// DeleteReport removes one report.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
