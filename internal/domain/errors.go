package domain

import "errors"

// Error kinds surfaced by data acquisition and normalization.
var (
	ErrTransport   = errors.New("transport failure")
	ErrProtocol    = errors.New("protocol failure")
	ErrValidation  = errors.New("validation failure")
	ErrEmptyResult = errors.New("empty result")
)
