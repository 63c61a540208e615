package cli

import (
	"context"
	"time"

	"compquiz/internal/app"
	"compquiz/internal/config"
	"compquiz/internal/domain"
	"compquiz/internal/infra/file"
	"compquiz/internal/infra/memory"
	pgloader "compquiz/internal/infra/postgres"
	redisinfra "compquiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// loadConfig reads the config file and applies the --log-level override.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return cfg, err
	}
	if logLevel == "" {
		setupLogging(cfg.Log.Level, cfg.Log.Pretty)
	} else {
		setupLogging(logLevel, cfg.Log.Pretty)
	}
	return cfg, nil
}

type questionBackend struct {
	loader memory.QuestionLoader
	redis  *redis.Client
	pool   *pgxpool.Pool
}

func (b *questionBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// openQuestionBackend picks the question loader: Postgres when configured,
// else the questions file/directory, else the built-in sample set.
func openQuestionBackend(ctx context.Context, cfg config.Config, useRedis bool) (*questionBackend, error) {
	b := &questionBackend{}

	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.loader = pgloader.NewQuestionLoader(pool)
		log.Info().Msg("questions from postgres")
	case cfg.Quiz.Questions != "":
		b.loader = file.NewQuestionLoader(cfg.Quiz.Questions)
		log.Info().Str("path", cfg.Quiz.Questions).Msg("questions from file")
	default:
		b.loader = memory.NewStaticLoader(sampleSets())
		log.Info().Msg("questions from built-in sample set")
	}

	if useRedis && cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return b, nil
}

func (b *questionBackend) repository(cfg config.Config) app.QuestionRepository {
	ttl := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisinfra.NewQuestionRepository(b.redis, b.loader, ttl)
	}
	return memory.NewQuestionRepository(b.loader, ttl)
}

func (b *questionBackend) sessionStore(cfg config.Config) app.SessionRepository {
	if b.redis != nil {
		return redisinfra.NewSessionStore(b.redis, config.Duration(cfg.Redis.TTL, 30*time.Minute))
	}
	return memory.NewSessionStore()
}

func serviceConfig(cfg config.Config) app.ServiceConfig {
	defaultSet := cfg.Quiz.DefaultSet
	if defaultSet == "" {
		defaultSet = "general"
	}
	return app.ServiceConfig{
		Session: app.SessionConfig{
			TimeLimit:    cfg.Quiz.TimeLimit,
			Tick:         config.Duration(cfg.Quiz.Tick, app.DefaultTick),
			AdvanceDelay: config.Duration(cfg.Quiz.AdvanceDelay, app.DefaultAdvanceDelay),
		},
		DefaultSet: defaultSet,
		Shuffle:    cfg.Quiz.Shuffle,
		Limit:      cfg.Quiz.Limit,
	}
}

// sampleSets provides a minimal question set; point quiz.questions or postgres.url at real content.
func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"general": {
			ID:    "general",
			Title: "CompQuiz sampler",
			Questions: []domain.Question{
				{
					Prompt:  "Which protocol upgrades an HTTP connection to a full-duplex channel?",
					Options: []string{"SMTP", "WebSocket", "FTP", "SNMP"},
					Answer:  "WebSocket",
				},
				{
					Prompt:  "What does CPU stand for?",
					Options: []string{"Central Processing Unit", "Core Power Unit", "Computer Personal Unit", "Central Peripheral Unit"},
					Answer:  "Central Processing Unit",
				},
				{
					Prompt:  "Which data structure is first-in, first-out?",
					Options: []string{"Stack", "Queue", "Tree", "Heap"},
					Answer:  "Queue",
				},
			},
		},
	}
}
