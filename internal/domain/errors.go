package domain

import "errors"

var (
	// ErrConfigurationMissing is returned when a session is started without a usable configuration.
	ErrConfigurationMissing = errors.New("session configuration missing")
	// ErrSessionNotFound is returned when no session exists for the given ID.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrSessionCompleted is returned when a mutating call hits a finished session.
	ErrSessionCompleted = errors.New("exam session already completed")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the session.
	ErrQuestionNotFound = errors.New("question not found in session")
	// ErrOptionNotFound indicates a submitted option letter is invalid for the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrResultNotFound is returned when a result is requested before completion.
	ErrResultNotFound = errors.New("exam result not found")
)
