package domain

import (
	"fmt"
	"strings"
)

// Question models an MCQ question; Answer must equal one of Options.
type Question struct {
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer" yaml:"answer"`
}

// Validate checks the question is answerable.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %q needs at least two options", ErrInvalidQuestion, q.Prompt)
	}
	for _, opt := range q.Options {
		if opt == q.Answer {
			return nil
		}
	}
	return fmt.Errorf("%w: answer of %q is not one of its options", ErrInvalidQuestion, q.Prompt)
}

// IsCorrect reports whether option is the recorded answer.
func (q Question) IsCorrect(option string) bool {
	return option == q.Answer
}

// QuestionSet is a named collection of questions.
type QuestionSet struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks every question of the set.
func (s QuestionSet) Validate() error {
	if len(s.Questions) == 0 {
		return ErrNoQuestions
	}
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
