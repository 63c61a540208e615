package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"compquiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuestionSource fetches a full question list.
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionProvider is what a session needs from its question supply.
type QuestionProvider interface {
	Questions() []domain.Question
	Loading() bool
	Err() error
	Reload(ctx context.Context) error
}

// SetSource adapts a QuestionRepository to a single question set.
type SetSource struct {
	repo  QuestionRepository
	setID string
}

func NewSetSource(repo QuestionRepository, setID string) *SetSource {
	return &SetSource{repo: repo, setID: setID}
}

func (s *SetSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	set, err := s.repo.GetQuestionSet(ctx, s.setID)
	if err != nil {
		return nil, err
	}
	return set.Questions, nil
}

// Provider holds the current question list of one session. Reload replaces
// the list wholesale, optionally shuffled and truncated.
type Provider struct {
	source  QuestionSource
	shuffle bool
	limit   int
	rnd     *rand.Rand
	sf      singleflight.Group

	mu        sync.RWMutex
	questions []domain.Question
	loading   bool
	err       error
}

type ProviderOption func(*Provider)

// WithShuffle reorders the questions on every reload.
func WithShuffle(rnd *rand.Rand) ProviderOption {
	return func(p *Provider) {
		p.shuffle = true
		if rnd != nil {
			p.rnd = rnd
		}
	}
}

// WithLimit keeps at most n questions per reload; n <= 0 keeps all.
func WithLimit(n int) ProviderOption {
	return func(p *Provider) {
		p.limit = n
	}
}

func NewProvider(source QuestionSource, opts ...ProviderOption) *Provider {
	p := &Provider{
		source: source,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Questions returns a copy of the current list.
func (p *Provider) Questions() []domain.Question {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Question, len(p.questions))
	copy(out, p.questions)
	return out
}

func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Reload fetches a fresh list. Concurrent calls share one fetch. On failure
// the list is cleared and Err reports the cause.
func (p *Provider) Reload(ctx context.Context) error {
	_, err, _ := p.sf.Do("reload", func() (interface{}, error) {
		p.mu.Lock()
		p.loading = true
		p.mu.Unlock()

		questions, err := p.fetch(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.loading = false
		if err != nil {
			p.questions = nil
			p.err = err
			return nil, err
		}
		p.questions = questions
		p.err = nil
		return nil, nil
	})
	return err
}

func (p *Provider) fetch(ctx context.Context) ([]domain.Question, error) {
	fetched, err := p.source.FetchQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuestionsUnavailable, err)
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuestionsUnavailable, domain.ErrNoQuestions)
	}
	for i, q := range fetched {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", domain.ErrQuestionsUnavailable, i+1, err)
		}
	}

	questions := make([]domain.Question, len(fetched))
	copy(questions, fetched)
	if p.shuffle {
		p.rnd.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if p.limit > 0 && p.limit < len(questions) {
		questions = questions[:p.limit]
	}
	return questions, nil
}
