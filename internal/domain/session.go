package domain

// Phase is one discrete state of a quiz session.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseInfo     Phase = "info"
	PhaseQuestion Phase = "question"
	PhaseAnswered Phase = "answered"
	PhaseResult   Phase = "result"
	PhaseError    Phase = "error"
)

// QuestionView is the part of a question shown while it is unanswered.
type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Snapshot is an immutable view of a session, published after every change.
type Snapshot struct {
	SessionID string        `json:"sessionId"`
	Phase     Phase         `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
	Answered  int           `json:"answered"`
	TimeLeft  int           `json:"timeLeft"`
	Question  *QuestionView `json:"question,omitempty"`
	Selected  string        `json:"selected,omitempty"`
	// Answer is only revealed once the current question is answered.
	Answer   string `json:"answer,omitempty"`
	Correct  bool   `json:"correct"`
	TimedOut bool   `json:"timedOut"`
	IsLast   bool   `json:"isLast"`
	Error    string `json:"error,omitempty"`
}
