package app

import (
	"context"
	"sync"
	"time"

	"compquiz/internal/domain"
	"github.com/rs/zerolog/log"
)

// Timing used when SessionConfig leaves a field unset.
const (
	DefaultTimeLimit    = 15
	DefaultTick         = time.Second
	DefaultAdvanceDelay = 3 * time.Second
)

// SessionConfig controls question timing.
type SessionConfig struct {
	// TimeLimit is the number of ticks a question stays open.
	TimeLimit    int
	Tick         time.Duration
	AdvanceDelay time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.TimeLimit <= 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.AdvanceDelay <= 0 {
		c.AdvanceDelay = DefaultAdvanceDelay
	}
	return c
}

// Session is the state machine of a single quiz run. Every intent and every
// timer callback runs under mu, so they are applied one at a time.
type Session struct {
	id       string
	provider QuestionProvider
	sched    Scheduler
	cfg      SessionConfig

	mu          sync.Mutex
	phase       domain.Phase
	questions   []domain.Question
	index       int
	score       int
	answered    int
	timeLeft    int
	selected    string
	hasSelected bool
	correct     bool
	timedOut    bool
	lastErr     error
	epoch       uint64
	stop        func() bool
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
}

func NewSession(id string, provider QuestionProvider, sched Scheduler, cfg SessionConfig) *Session {
	return &Session{
		id:          id,
		provider:    provider,
		sched:       sched,
		cfg:         cfg.withDefaults(),
		phase:       domain.PhaseIdle,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start shows the info screen, loading questions first if none are held or
// the previous load failed.
func (s *Session) Start(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseIdle && s.phase != domain.PhaseError {
		return s.ignoredLocked("start"), nil
	}

	s.resetLocked()
	if len(s.provider.Questions()) == 0 || s.provider.Err() != nil {
		if ok, err := s.loadLocked(ctx); !ok {
			return s.snapshotLocked(), err
		}
	}
	s.phase = domain.PhaseInfo
	return s.broadcastLocked(), nil
}

// Continue leaves the info screen and opens the first question.
func (s *Session) Continue() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseInfo {
		return s.ignoredLocked("continue")
	}
	s.beginRoundLocked()
	return s.broadcastLocked()
}

// Exit leaves the info screen without playing.
func (s *Session) Exit() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseInfo {
		return s.ignoredLocked("exit")
	}
	s.resetLocked()
	s.phase = domain.PhaseIdle
	return s.broadcastLocked()
}

// Select records option as the answer to the current question. Only the
// first selection per question counts.
func (s *Session) Select(option string) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseQuestion {
		return s.ignoredLocked("select")
	}
	s.answerLocked(option, true)
	return s.broadcastLocked()
}

// Next advances once the current question is answered.
func (s *Session) Next() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseAnswered {
		return s.ignoredLocked("next")
	}
	s.advanceLocked()
	return s.broadcastLocked()
}

// Restart reloads the questions and starts a new round from the first one.
func (s *Session) Restart(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseResult && s.phase != domain.PhaseError {
		return s.ignoredLocked("restart"), nil
	}

	s.resetLocked()
	if ok, err := s.loadLocked(ctx); !ok {
		return s.snapshotLocked(), err
	}
	s.beginRoundLocked()
	return s.broadcastLocked(), nil
}

// Quit returns to idle from the result or error screen.
func (s *Session) Quit() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseResult && s.phase != domain.PhaseError {
		return s.ignoredLocked("quit")
	}
	s.resetLocked()
	s.phase = domain.PhaseIdle
	return s.broadcastLocked()
}

// Close cancels pending timers and closes all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPendingLocked()
	s.epoch++
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current one. The caller must invoke cancel.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) tick(t ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) || s.phase != domain.PhaseQuestion {
		s.staleLocked("tick", t)
		return
	}
	s.stop = nil

	s.timeLeft--
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		s.answerLocked("", false)
	} else {
		s.scheduleLocked(s.cfg.Tick, s.tick)
	}
	s.broadcastLocked()
}

func (s *Session) autoAdvance(t ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) || s.phase != domain.PhaseAnswered {
		s.staleLocked("advance", t)
		return
	}
	s.stop = nil
	s.advanceLocked()
	s.broadcastLocked()
}

// loadLocked reloads the provider with mu released, so Snapshot keeps
// answering during I/O. Every intent is ignored in the loading phase; only
// Close can move the session on, in which case ok is false and the result
// of the load is discarded.
func (s *Session) loadLocked(ctx context.Context) (ok bool, err error) {
	s.phase = domain.PhaseLoading
	s.epoch++
	epoch := s.epoch
	s.broadcastLocked()

	s.mu.Unlock()
	err = s.provider.Reload(ctx)
	s.mu.Lock()

	if s.closed || s.epoch != epoch {
		return false, err
	}
	if err != nil {
		s.phase = domain.PhaseError
		s.lastErr = err
		s.broadcastLocked()
		log.Warn().Err(err).Str("session_id", s.id).Msg("question load failed")
		return false, err
	}
	return true, nil
}

// beginRoundLocked takes the provider's current list for the whole round.
func (s *Session) beginRoundLocked() {
	s.questions = s.provider.Questions()
	s.index = 0
	s.score = 0
	s.answered = 0
	if len(s.questions) == 0 {
		s.phase = domain.PhaseError
		s.lastErr = domain.ErrNoQuestions
		return
	}
	s.activateLocked()
}

func (s *Session) activateLocked() {
	s.epoch++
	s.phase = domain.PhaseQuestion
	s.timeLeft = s.cfg.TimeLimit
	s.selected = ""
	s.hasSelected = false
	s.correct = false
	s.timedOut = false
	s.scheduleLocked(s.cfg.Tick, s.tick)
}

// answerLocked records the outcome of the current question. A timeout is an
// answer with no selection.
func (s *Session) answerLocked(option string, selected bool) {
	s.cancelPendingLocked()
	s.epoch++

	question := s.questions[s.index]
	s.phase = domain.PhaseAnswered
	s.answered++
	s.selected = option
	s.hasSelected = selected
	s.timedOut = !selected
	s.correct = selected && question.IsCorrect(option)
	if s.correct {
		s.score++
	}

	log.Debug().
		Str("session_id", s.id).
		Int("index", s.index).
		Bool("correct", s.correct).
		Bool("timed_out", s.timedOut).
		Int("score", s.score).
		Msg("question answered")

	s.scheduleLocked(s.cfg.AdvanceDelay, s.autoAdvance)
}

func (s *Session) advanceLocked() {
	s.cancelPendingLocked()
	if s.index+1 < len(s.questions) {
		s.index++
		s.activateLocked()
		return
	}
	s.epoch++
	s.phase = domain.PhaseResult
	log.Info().
		Str("session_id", s.id).
		Int("score", s.score).
		Int("total", len(s.questions)).
		Msg("quiz finished")
}

func (s *Session) resetLocked() {
	s.cancelPendingLocked()
	s.epoch++
	s.questions = nil
	s.index = 0
	s.score = 0
	s.answered = 0
	s.timeLeft = 0
	s.selected = ""
	s.hasSelected = false
	s.correct = false
	s.timedOut = false
	s.lastErr = nil
}

func (s *Session) scheduleLocked(d time.Duration, fn func(ticket)) {
	s.cancelPendingLocked()
	if s.closed {
		return
	}
	t := ticket{epoch: s.epoch, index: s.index}
	s.stop = s.sched.AfterFunc(d, func() { fn(t) })
}

func (s *Session) cancelPendingLocked() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *Session) currentLocked(t ticket) bool {
	return !s.closed && t.epoch == s.epoch && t.index == s.index
}

func (s *Session) staleLocked(kind string, t ticket) {
	log.Debug().
		Str("session_id", s.id).
		Str("callback", kind).
		Int("index", t.index).
		Uint64("epoch", t.epoch).
		Uint64("current_epoch", s.epoch).
		Msg("dropping stale callback")
}

func (s *Session) ignoredLocked(intent string) domain.Snapshot {
	log.Debug().
		Str("session_id", s.id).
		Str("intent", intent).
		Str("phase", string(s.phase)).
		Msg("intent ignored in current phase")
	return s.snapshotLocked()
}

func (s *Session) broadcastLocked() domain.Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot; subscribers only need the latest.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.Snapshot {
	total := len(s.questions)
	if total == 0 {
		total = len(s.provider.Questions())
	}
	snap := domain.Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Index:     s.index,
		Total:     total,
		Score:     s.score,
		Answered:  s.answered,
		TimeLeft:  s.timeLeft,
	}

	if (s.phase == domain.PhaseQuestion || s.phase == domain.PhaseAnswered) && s.index < len(s.questions) {
		q := s.questions[s.index]
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		snap.Question = &domain.QuestionView{Prompt: q.Prompt, Options: options}
		snap.IsLast = s.index == len(s.questions)-1
		if s.phase == domain.PhaseAnswered {
			snap.Answer = q.Answer
			snap.Correct = s.correct
			snap.TimedOut = s.timedOut
			if s.hasSelected {
				snap.Selected = s.selected
			}
		}
	}
	if s.phase == domain.PhaseError && s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}
