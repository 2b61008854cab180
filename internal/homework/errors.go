package homework

import "errors"

var (
	// ErrInsufficientCredits means the user's balance cannot cover the
	// request. The balance is never driven negative.
	ErrInsufficientCredits = errors.New("insufficient ai credits")

	// ErrInvalidTaskCount means the requested task count is outside [3,10].
	ErrInvalidTaskCount = errors.New("tasks count must be between 3 and 10")

	// ErrInvalidRequest covers other rejectable request fields (oversized
	// text, unknown provider tier).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStudentNotFound means the student does not exist or belongs to a
	// different user.
	ErrStudentNotFound = errors.New("student not found")

	// ErrNotFound is returned for missing homework records.
	ErrNotFound = errors.New("homework not found")
)
