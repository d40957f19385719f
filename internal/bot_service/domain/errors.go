package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrQueueFull         = errors.New("delivery queue is full")
	ErrDispatcherStopped = errors.New("delivery dispatcher stopped")
	ErrLLMNotConfigured  = errors.New("llm api key is not configured")
	ErrEmptyCompletion   = errors.New("llm returned no content")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
)
