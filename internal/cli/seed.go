package cli

import (
	"context"
	"fmt"

	"compquiz/internal/domain"
	"compquiz/internal/infra/file"
	"compquiz/internal/infra/postgres"
	redisinfra "compquiz/internal/infra/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type setWriter interface {
	Upsert(ctx context.Context, set domain.QuestionSet) error
}

type setCache interface {
	Invalidate(ctx context.Context, setID string) error
}

// NewSeedCmd upserts question sets from YAML/JSON files into Postgres and
// drops their Redis copies so servers pick up the new content.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE...",
		Short: "Load question set files into Postgres",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			var cache setCache
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache = redisinfra.NewQuestionRepository(client, nil, 0)
			}
			return seedFiles(cmd.Context(), postgres.NewQuestionWriter(db), cache, args)
		},
	}
}

func seedFiles(ctx context.Context, writer setWriter, cache setCache, paths []string) error {
	for _, path := range paths {
		set, err := file.ReadQuestionSet(path)
		if err != nil {
			return err
		}
		if err := writer.Upsert(ctx, set); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		if cache != nil {
			// stale copies still expire with their TTL
			if err := cache.Invalidate(ctx, set.ID); err != nil {
				log.Warn().Err(err).Str("set_id", set.ID).Msg("drop cached question set")
			}
		}
		log.Info().Str("set_id", set.ID).Int("questions", len(set.Questions)).Msg("question set seeded")
	}
	return nil
}
