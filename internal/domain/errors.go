package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionSetNotFound indicates the question set could not be located by its loader.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrQuestionsUnavailable wraps any failure to (re)load the question list.
	ErrQuestionsUnavailable = errors.New("questions unavailable")
	// ErrNoQuestions indicates a load succeeded but produced an empty list.
	ErrNoQuestions = errors.New("question set is empty")
	// ErrInvalidQuestion indicates a question whose answer is not one of its options.
	ErrInvalidQuestion = errors.New("invalid question")
)
