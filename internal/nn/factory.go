package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// NewNorm builds the normalization layer of scheme for a channels-wide
// feature map.
//
// Errors:
//   - ErrUnknownScheme when scheme is not a declared constant
//   - ErrInvalidChannels when channels <= 0, or when a group-based scheme
//     cannot split channels into the configured number of groups
//   - ErrInvalidGroups when a group-based scheme is given groups <= 0
func NewNorm[B tensor.Backend](channels int, scheme Scheme, backend B, opts ...NormOption) (Norm[B], error) {
	if !scheme.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if scheme.UsesGroup() {
		if err := validateGroups(channels, newNormConfig(opts).groups); err != nil {
			return nil, fmt.Errorf("%s norm: %w", scheme, err)
		}
	}

	switch scheme {
	case SchemeBatch:
		return NewBatchNorm2D(channels, backend, opts...), nil
	case SchemeGroup:
		return NewGroupNorm2D(channels, backend, opts...), nil
	case SchemeGroupThenBatch:
		return NewGroupThenBatchNorm2D(channels, backend, opts...), nil
	case SchemeBatchThenGroup:
		return NewBatchThenGroupNorm2D(channels, backend, opts...), nil
	case SchemeParallel:
		return NewParallelGroupBatchNorm2D(channels, backend, opts...), nil
	default:
		return NewIdentity[B](channels), nil
	}
}

// NewNormByName parses name with ParseScheme and builds the layer with NewNorm.
func NewNormByName[B tensor.Backend](channels int, name string, backend B, opts ...NormOption) (Norm[B], error) {
	scheme, err := ParseScheme(name)
	if err != nil {
		return nil, err
	}
	return NewNorm(channels, scheme, backend, opts...)
}
