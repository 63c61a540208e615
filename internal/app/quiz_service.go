package app

import (
	"context"
	"math/rand"
	"time"

	"compquiz/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionRepository abstracts how live sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// SessionToucher is implemented by session stores that expire idle entries.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string) error
}

// ServiceConfig configures the sessions a QuizService opens.
type ServiceConfig struct {
	Session    SessionConfig
	DefaultSet string
	Shuffle    bool
	Limit      int
}

// QuizService opens, looks up and closes quiz sessions.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	sched     Scheduler
	cfg       ServiceConfig
	newID     func() string
}

func NewQuizService(store SessionRepository, questions QuestionRepository, sched Scheduler, cfg ServiceConfig) *QuizService {
	return &QuizService{
		sessions:  store,
		questions: questions,
		sched:     sched,
		cfg:       cfg,
		newID:     func() string { return uuid.New().String() },
	}
}

// Open creates an idle session over the given question set; an empty setID
// selects the configured default.
func (s *QuizService) Open(_ context.Context, setID string) *Session {
	if setID == "" {
		setID = s.cfg.DefaultSet
	}

	var opts []ProviderOption
	if s.cfg.Shuffle {
		opts = append(opts, WithShuffle(rand.New(rand.NewSource(time.Now().UnixNano()))))
	}
	if s.cfg.Limit > 0 {
		opts = append(opts, WithLimit(s.cfg.Limit))
	}
	provider := NewProvider(NewSetSource(s.questions, setID), opts...)

	session := NewSession(s.newID(), provider, s.sched, s.cfg.Session)
	s.sessions.Put(session)
	log.Debug().Str("session_id", session.ID()).Str("set_id", setID).Msg("session opened")
	return session
}

// Get returns a live session.
func (s *QuizService) Get(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Touch marks a session as still in use. Stores without expiry ignore it.
func (s *QuizService) Touch(ctx context.Context, sessionID string) {
	toucher, ok := s.sessions.(SessionToucher)
	if !ok {
		return
	}
	if err := toucher.Touch(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("refresh session liveness")
	}
}

// Close stops the session's timers and forgets it.
func (s *QuizService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	log.Debug().Str("session_id", sessionID).Msg("session closed")
}
