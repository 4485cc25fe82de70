package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-simulator/internal/domain"
	"github.com/uptrace/bun"
)

// SeedBank upserts a validated question bank into the question_banks table.
// This is the handoff point between the offline generation pipeline and the
// simulator: the pipeline emits the JSON, the seed command stores it.
func SeedBank(ctx context.Context, db *bun.DB, bank domain.Bank) error {
	if err := domain.ValidateBank(bank); err != nil {
		return err
	}
	raw, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO question_banks (id, data) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		bank.ID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("seed bank %s: %w", bank.ID, err)
	}
	return nil
}
