package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// GroupNorm2D applies Group Normalization over a 4D input [N, C, H, W].
//
// The C channels of every sample are split into Groups contiguous groups of
// C/Groups channels; each group is normalized over its channels and spatial
// positions, then a per-channel affine transform is applied. No statistic is
// shared between samples, so the output does not depend on the batch size and
// the layer behaves the same in training and evaluation.
type GroupNorm2D[B tensor.Backend] struct {
	affine[B]

	Groups  int
	Epsilon float32

	channels int
	training bool
}

// NewGroupNorm2D creates a new GroupNorm2D layer.
//
// The group count defaults to DefaultGroups and can be changed with
// WithGroups. Panics if channels is not positive or not divisible by the
// group count; NewNorm reports the same conditions as errors.
func NewGroupNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *GroupNorm2D[B] {
	cfg := newNormConfig(opts)
	if err := validateGroups(channels, cfg.groups); err != nil {
		panic(fmt.Sprintf("groupnorm2d: %v", err))
	}

	return &GroupNorm2D[B]{
		affine:   newAffine(channels, backend),
		Groups:   cfg.groups,
		Epsilon:  cfg.epsilon,
		channels: channels,
		training: true,
	}
}

func validateGroups(channels, groups int) error {
	if channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if groups <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGroups, groups)
	}
	if channels%groups != 0 {
		return fmt.Errorf("%w: %d channels not divisible into %d groups", ErrInvalidChannels, channels, groups)
	}
	return nil
}

// Forward normalizes x per sample and channel group.
//
// Algorithm:
//  1. Reshape [N, C, H, W] -> [N*G, C/G * H * W]
//  2. Standardize each row
//  3. Reshape back to [N, C, H, W] and apply gamma, beta per channel
func (gn *GroupNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkImage("groupnorm2d", x, gn.channels)

	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]

	grouped := x.Reshape(n*gn.Groups, (c/gn.Groups)*h*w)
	normalized, _, _ := standardizeRows(grouped, gn.Epsilon)

	return gn.apply(normalized.Reshape(n, c, h, w))
}

// Parameters returns the learnable parameters (gamma and beta).
func (gn *GroupNorm2D[B]) Parameters() []*Parameter[B] {
	return gn.parameters()
}

// StateDict returns gamma and beta.
func (gn *GroupNorm2D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	gn.stateDict(stateDict)
	return stateDict
}

// LoadStateDict loads gamma and beta.
func (gn *GroupNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return gn.loadStateDict(stateDict)
}

// SetTraining records the mode; group statistics are always per sample.
func (gn *GroupNorm2D[B]) SetTraining(training bool) { gn.training = training }

// Training reports the recorded mode.
func (gn *GroupNorm2D[B]) Training() bool { return gn.training }

// Scheme returns SchemeGroup.
func (gn *GroupNorm2D[B]) Scheme() Scheme { return SchemeGroup }

// Channels returns the number of normalized channels.
func (gn *GroupNorm2D[B]) Channels() int { return gn.channels }

// String returns a string representation of the layer.
func (gn *GroupNorm2D[B]) String() string {
	return fmt.Sprintf("GroupNorm2D(groups=%d, channels=%d, eps=%g)", gn.Groups, gn.channels, gn.Epsilon)
}
