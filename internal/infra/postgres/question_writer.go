package postgres

import (
	"context"
	"fmt"
	"time"

	"compquiz/internal/domain"
	"github.com/uptrace/bun"
)

type questionSetRow struct {
	bun.BaseModel `bun:"table:question_sets"`

	ID        string            `bun:"id,pk"`
	Title     string            `bun:"title,notnull"`
	Data      []domain.Question `bun:"data,type:jsonb,notnull"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// QuestionWriter seeds question sets into Postgres.
type QuestionWriter struct {
	db *bun.DB
}

func NewQuestionWriter(db *bun.DB) *QuestionWriter {
	return &QuestionWriter{db: db}
}

// Upsert validates set and inserts or replaces it by id.
func (w *QuestionWriter) Upsert(ctx context.Context, set domain.QuestionSet) error {
	if set.ID == "" {
		return fmt.Errorf("upsert question set: missing id")
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("upsert question set %q: %w", set.ID, err)
	}

	row := &questionSetRow{ID: set.ID, Title: set.Title, Data: set.Questions}
	_, err := w.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert question set %q: %w", set.ID, err)
	}
	return nil
}
