package models

import "errors"

// Builder errors.
var (
	ErrUnknownArchitecture = errors.New("unknown architecture")
	ErrInvalidClassCount   = errors.New("invalid class count")
)
