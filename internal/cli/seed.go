package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"exam-simulator/internal/config"
	"exam-simulator/internal/domain"
	pgstore "exam-simulator/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a generated question-bank JSON file into Postgres.
// The file is the artifact produced by the offline generation pipeline:
// either a full bank object or a bare array of question records.
func NewSeedCmd(configPath *string) *cobra.Command {
	var bankFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			bank, err := readBankFile(bankFile)
			if err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()

			if err := pgstore.SeedBank(cmd.Context(), db, bank); err != nil {
				return err
			}
			log.Printf("seeded bank %s with %d questions", bank.ID, len(bank.Questions))
			return nil
		},
	}

	cmd.Flags().StringVar(&bankFile, "file", "data/questions.json", "path to question bank JSON")
	return cmd
}

func readBankFile(path string) (domain.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Bank{}, err
	}

	var bank domain.Bank
	if err := json.Unmarshal(data, &bank); err == nil && bank.ID != "" {
		return bank, nil
	}

	// The pipeline's merge step emits a bare array of records.
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.Bank{}, fmt.Errorf("parse bank file %s: %w", path, err)
	}
	return domain.Bank{ID: domain.ExamID, Questions: questions}, nil
}
