package nn

import (
	"fmt"

	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// stateless provides the empty parameter set of layers without weights.
type stateless[B tensor.Backend] struct{}

// Parameters returns nil.
func (stateless[B]) Parameters() []*Parameter[B] { return nil }

// StateDict returns an empty map.
func (stateless[B]) StateDict() map[string]*tensor.RawTensor {
	return make(map[string]*tensor.RawTensor)
}

// LoadStateDict ignores its argument.
func (stateless[B]) LoadStateDict(_ map[string]*tensor.RawTensor) error { return nil }

// MaxPool2D is born's max pooling with the module state dict methods.
type MaxPool2D[B tensor.Backend] struct {
	*bornnn.MaxPool2D[B]
	stateless[B]
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernel, stride int, backend B) *MaxPool2D[B] {
	return &MaxPool2D[B]{MaxPool2D: bornnn.NewMaxPool2D(kernel, stride, backend)}
}

// Parameters returns nil.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }

// AvgPool2D averages non-overlapping kernel x kernel windows.
//
// The spatial dimensions must be divisible by the kernel. A kernel of 1 is the
// identity mapping.
type AvgPool2D[B tensor.Backend] struct {
	stateless[B]

	Kernel int
}

// NewAvgPool2D creates an average pooling layer with stride equal to kernel.
func NewAvgPool2D[B tensor.Backend](kernel int) *AvgPool2D[B] {
	if kernel <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid kernel %d", kernel))
	}
	return &AvgPool2D[B]{Kernel: kernel}
}

// Forward pools [N, C, H, W] into [N, C, H/k, W/k].
func (p *AvgPool2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkImage("avgpool2d", x, 0)
	if p.Kernel == 1 {
		return x
	}

	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	k := p.Kernel
	if h%k != 0 || w%k != 0 {
		panic(fmt.Sprintf("avgpool2d: spatial size %dx%d not divisible by kernel %d", h, w, k))
	}

	windows := x.Reshape(n, c, h/k, k, w/k, k)
	return windows.MeanDim(5, false).MeanDim(3, false)
}

func (p *AvgPool2D[B]) String() string {
	return fmt.Sprintf("AvgPool2D(kernel_size=%d, stride=%d)", p.Kernel, p.Kernel)
}

// GlobalAvgPool2D averages over the full spatial extent: [N, C, H, W] -> [N, C, 1, 1].
type GlobalAvgPool2D[B tensor.Backend] struct {
	stateless[B]
}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{}
}

// Forward averages every channel map to a single value.
func (p *GlobalAvgPool2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkImage("globalavgpool2d", x, 0)
	return meanOver(x, 2, 3)
}

func (p *GlobalAvgPool2D[B]) String() string { return "GlobalAvgPool2D()" }

// Flatten collapses every dimension after the first: [N, ...] -> [N, rest].
type Flatten[B tensor.Backend] struct {
	stateless[B]
}

// NewFlatten creates a flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward reshapes x to two dimensions.
func (f *Flatten[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got %dD", len(shape)))
	}
	rest := 1
	for _, d := range shape[1:] {
		rest *= d
	}
	return x.Reshape(shape[0], rest)
}

func (f *Flatten[B]) String() string { return "Flatten()" }
