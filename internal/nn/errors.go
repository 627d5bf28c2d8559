package nn

import "errors"

// Configuration errors returned by the normalization factory.
var (
	ErrUnknownScheme   = errors.New("unknown normalization scheme")
	ErrInvalidChannels = errors.New("invalid channel count")
	ErrInvalidGroups   = errors.New("invalid group count")
)
