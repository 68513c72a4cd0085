package domain

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("job not found")
	ErrDuplicateID       = errors.New("duplicate job id")
	ErrUnauthorized      = errors.New("not authorized")
	ErrAlreadyProcessing = errors.New("job is already processing")
	ErrPersistence       = errors.New("persistence failure")
)
