package services

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid verification token")
	ErrInvalidRequest        = errors.New("invalid verification request")
	ErrUnknownType           = errors.New("unknown verification record type")
	ErrTargetNotFound        = errors.New("target account not found")
	ErrTokenGenerationFailed = errors.New("could not generate a unique verification token")
)
