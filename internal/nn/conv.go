package nn

import (
	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// Conv2D is born's 2D convolution with state dict support.
//
// State dict keys: "weight" [out, in, kh, kw] and, when the layer has a bias,
// "bias" [out].
type Conv2D[B tensor.Backend] struct {
	*bornnn.Conv2D[B]
}

// NewConv2D creates a square-kernel convolution.
//
// Panics on non-positive channels, kernel or stride, and on negative padding.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernel, stride, padding int, useBias bool, backend B) *Conv2D[B] {
	return &Conv2D[B]{
		Conv2D: bornnn.NewConv2D(inChannels, outChannels, kernel, kernel, stride, padding, useBias, backend),
	}
}

// Weight returns the kernel parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.Parameters()[0]
}

// Bias returns the bias parameter, or nil when the layer has none.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	params := c.Parameters()
	if len(params) < 2 {
		return nil
	}
	return params[1]
}

// StateDict returns the weight and, if present, the bias.
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := map[string]*tensor.RawTensor{
		"weight": c.Weight().Tensor().Raw(),
	}
	if bias := c.Bias(); bias != nil {
		stateDict["bias"] = bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict loads the weight and, if present, the bias.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadTensor(c.Weight().Tensor(), stateDict, "weight"); err != nil {
		return err
	}
	if bias := c.Bias(); bias != nil {
		return loadTensor(bias.Tensor(), stateDict, "bias")
	}
	return nil
}
