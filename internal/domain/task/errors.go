package task

import "errors"

var (
	// ErrEmailNotRecognized indicates the email matched no workspace member.
	// Callers must surface this distinctly from an empty task list.
	ErrEmailNotRecognized = errors.New("email not recognized in workspace")
	// ErrInvalidInput indicates invalid input for a task query.
	ErrInvalidInput = errors.New("invalid task query input")
)
