package models

import (
	"fmt"

	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// vggPool marks a max pooling entry in a VGG layout.
const vggPool = 0

// vgg16Layout lists output widths of the 3x3 convolutions; vggPool entries
// are 2x2 max pools.
var vgg16Layout = []int{
	64, 64, vggPool,
	128, 128, vggPool,
	256, 256, 256, vggPool,
	512, 512, 512, vggPool,
	512, 512, 512, vggPool,
}

// VGG is the CIFAR-style VGG network.
//
// Features holds, for each convolution of the layout, the triple
// conv -> norm -> relu, a max pool for each pooling entry, and a final 1x1
// average pool. For VGG16 the first norm sits at Features index 1 and the
// last at index 41.
type VGG[B tensor.Backend] struct {
	Features   *bornnn.Sequential[B]
	Flatten    *nn.Flatten[B]
	Classifier *bornnn.Linear[B]

	norms       []nn.Norm[B]
	normIndices []int
	classes     int
	scheme      nn.Scheme
	training    bool
}

// NewVGG16 builds VGG16 for classes outputs with the given normalization scheme.
func NewVGG16[B tensor.Backend](classes int, scheme nn.Scheme, backend B) (*VGG[B], error) {
	if classes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClassCount, classes)
	}

	net := &VGG[B]{
		Features: bornnn.NewSequential[B](),
		Flatten:  nn.NewFlatten[B](),
		classes:  classes,
		scheme:   scheme,
		training: true,
	}

	in := 3
	for _, width := range vgg16Layout {
		if width == vggPool {
			net.Features.Add(nn.NewMaxPool2D(2, 2, backend))
			continue
		}
		norm, err := nn.NewNorm(width, scheme, backend)
		if err != nil {
			return nil, fmt.Errorf("VGG16 features[%d]: %w", net.Features.Len()+1, err)
		}
		net.Features.Add(nn.NewConv2D(in, width, 3, 1, 1, true, backend))
		net.normIndices = append(net.normIndices, net.Features.Len())
		net.norms = append(net.norms, norm)
		net.Features.Add(norm)
		net.Features.Add(bornnn.NewReLU[B]())
		in = width
	}
	net.Features.Add(nn.NewAvgPool2D[B](1))
	net.Classifier = bornnn.NewLinear(in, classes, backend)

	return net, nil
}

// Forward maps [N, 3, 32, 32] images to [N, classes] logits.
func (v *VGG[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkInput("VGG16", x)
	out := v.Flatten.Forward(v.Features.Forward(x))
	return v.Classifier.Forward(out)
}

// Parameters returns every trainable parameter in forward order.
func (v *VGG[B]) Parameters() []*nn.Parameter[B] {
	return append(v.Features.Parameters(), v.Classifier.Parameters()...)
}

// StateDict returns the state keyed "features.<i>.*" and "classifier.*".
func (v *VGG[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(stateDict, "features", v.Features.StateDict())
	nn.MergeStateDict(stateDict, "classifier", v.Classifier.StateDict())
	return stateDict
}

// LoadStateDict loads a state produced by StateDict.
func (v *VGG[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadNamed(stateDict, []named[B]{
		{"features", v.Features},
		{"classifier", v.Classifier},
	})
}

// SetTraining switches every norm between batch and running statistics.
func (v *VGG[B]) SetTraining(training bool) {
	v.training = training
	nn.SetTraining[B](v.Features, training)
}

// Training reports the current mode.
func (v *VGG[B]) Training() bool { return v.training }

// Architecture returns VGG16.
func (v *VGG[B]) Architecture() Architecture { return VGG16 }

// NumClasses returns the number of output logits.
func (v *VGG[B]) NumClasses() int { return v.classes }

// Scheme returns the normalization scheme used throughout the network.
func (v *VGG[B]) Scheme() nn.Scheme { return v.scheme }

// Feature returns Features module i.
func (v *VGG[B]) Feature(i int) nn.Module[B] { return v.Features.Module(i) }

// StemNorm returns the norm following the first convolution.
func (v *VGG[B]) StemNorm() nn.Norm[B] { return v.norms[0] }

// ProbeNorm returns the norm following the last convolution.
func (v *VGG[B]) ProbeNorm() nn.Norm[B] { return v.norms[len(v.norms)-1] }

// NormIndices returns the Features positions holding a norm.
func (v *VGG[B]) NormIndices() []int {
	return append([]int(nil), v.normIndices...)
}

// Norms returns every normalization layer in forward order.
func (v *VGG[B]) Norms() []nn.Norm[B] {
	return append([]nn.Norm[B](nil), v.norms...)
}

func (v *VGG[B]) String() string {
	return fmt.Sprintf("VGG16(features=%d, classes=%d, norm=%s)", v.Features.Len(), v.classes, v.scheme)
}
