package boterr

import "errors"

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrNoConversation = errors.New("no active conversation")
)
