package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// Identity is the normalization layer of SchemeNone.
//
// Forward returns its input unchanged: the output is the very same tensor,
// so no statistic of any kind is computed or applied.
type Identity[B tensor.Backend] struct {
	channels int
	training bool
}

// NewIdentity creates an identity layer that stands in for a normalization
// over channels channels.
func NewIdentity[B tensor.Backend](channels int) *Identity[B] {
	return &Identity[B]{channels: channels, training: true}
}

// Forward returns x.
func (l *Identity[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x
}

// Parameters returns nil (Identity has no trainable parameters).
func (l *Identity[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (l *Identity[B]) StateDict() map[string]*tensor.RawTensor {
	return make(map[string]*tensor.RawTensor)
}

// LoadStateDict accepts any state dictionary; there is nothing to load.
func (l *Identity[B]) LoadStateDict(_ map[string]*tensor.RawTensor) error {
	return nil
}

// SetTraining records the mode; it has no effect on the output.
func (l *Identity[B]) SetTraining(training bool) { l.training = training }

// Training reports the recorded mode.
func (l *Identity[B]) Training() bool { return l.training }

// Scheme returns SchemeNone.
func (l *Identity[B]) Scheme() Scheme { return SchemeNone }

// Channels returns the channel count the layer stands in for.
func (l *Identity[B]) Channels() int { return l.channels }

// String returns a string representation of the layer.
func (l *Identity[B]) String() string {
	return fmt.Sprintf("Identity(channels=%d)", l.channels)
}
