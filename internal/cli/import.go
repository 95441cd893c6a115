package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trivia-bot/internal/config"
	"trivia-bot/internal/domain"
	"trivia-bot/internal/infra/opentdb"
	"trivia-bot/internal/infra/postgres"
)

const openTDBCooldown = 5 * time.Second

// NewImportCmd copies OpenTDB questions into the Postgres question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		amount     int
		difficulty string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import OpenTDB questions into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			difficulties := domain.Difficulties
			if difficulty != "" {
				d, err := domain.ParseDifficulty(difficulty)
				if err != nil {
					return err
				}
				difficulties = []domain.Difficulty{d}
			}
			return runImport(cmd.Context(), cfg, difficulties, amount)
		},
	}
	cmd.Flags().IntVar(&amount, "amount", 50, "questions to request per difficulty (max 50)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "only import this difficulty")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, difficulties []domain.Difficulty, amount int) error {
	if err := runMigrations(ctx, cfg); err != nil {
		return err
	}
	db, err := openBun(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := cfg.Log.Logger()
	client := opentdb.NewClient(cfg.Trivia.OpenTDBURL, config.Duration(cfg.Trivia.ClientTimeout, 0))
	writer := postgres.NewQuestionWriter(db)

	for i, d := range difficulties {
		if i > 0 {
			// OpenTDB allows one request per IP every five seconds.
			select {
			case <-time.After(openTDBCooldown):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		questions, err := client.FetchBatch(ctx, d, amount)
		if err != nil {
			return fmt.Errorf("fetch %s questions: %w", d, err)
		}
		added, err := writer.Save(ctx, questions)
		if err != nil {
			return err
		}
		total, err := writer.Count(ctx, d)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "import: stored questions",
			"difficulty", d,
			"fetched", len(questions),
			"added", added,
			"total", total,
		)
	}
	return nil
}
