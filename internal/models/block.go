package models

import (
	"fmt"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// BlockKind selects the residual unit of a ResNet.
type BlockKind int

// Residual units.
const (
	// BlockBasic is two 3x3 convolutions, expansion 1.
	BlockBasic BlockKind = iota
	// BlockBottleneck is 1x1 reduce, 3x3, 1x1 expand, expansion 4.
	BlockBottleneck
)

// Expansion returns the ratio of output channels to planes.
func (k BlockKind) Expansion() int {
	if k == BlockBottleneck {
		return 4
	}
	return 1
}

func (k BlockKind) String() string {
	if k == BlockBottleneck {
		return "Bottleneck"
	}
	return "BasicBlock"
}

// Block is a residual unit: relu(main(x) + shortcut(x)).
type Block[B tensor.Backend] interface {
	nn.Module[B]

	// Expansion returns the ratio of output channels to planes.
	Expansion() int
	// OutChannels returns planes * Expansion().
	OutChannels() int
	// Norms returns the main-path norms followed by the projection norm, if any.
	Norms() []nn.Norm[B]
	// OutputNorm returns the last norm of the main path.
	OutputNorm() nn.Norm[B]
	// Shortcut returns the skip connection.
	Shortcut() *Shortcut[B]
	// HasProjection reports whether the skip connection is a projection.
	HasProjection() bool
}

// NewBlock creates a residual unit of kind.
func NewBlock[B tensor.Backend](kind BlockKind, inPlanes, planes, stride int, scheme nn.Scheme, backend B) (Block[B], error) {
	if kind == BlockBottleneck {
		block, err := NewBottleneck(inPlanes, planes, stride, scheme, backend)
		if err != nil {
			return nil, err
		}
		return block, nil
	}
	block, err := NewBasicBlock(inPlanes, planes, stride, scheme, backend)
	if err != nil {
		return nil, err
	}
	return block, nil
}

// Shortcut is the skip connection of a residual unit.
//
// A projection (1x1 conv with the block's stride, followed by a norm) is
// present exactly when stride != 1 or inPlanes != outChannels. Otherwise the
// shortcut is the identity and Conv and Norm are nil.
type Shortcut[B tensor.Backend] struct {
	Conv *nn.Conv2D[B]
	Norm nn.Norm[B]
}

func newShortcut[B tensor.Backend](inPlanes, outChannels, stride int, scheme nn.Scheme, backend B) (*Shortcut[B], error) {
	if stride == 1 && inPlanes == outChannels {
		return &Shortcut[B]{}, nil
	}
	norm, err := nn.NewNorm(outChannels, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("shortcut: %w", err)
	}
	return &Shortcut[B]{
		Conv: nn.NewConv2D(inPlanes, outChannels, 1, stride, 0, false, backend),
		Norm: norm,
	}, nil
}

// IsProjection reports whether the shortcut transforms its input.
func (s *Shortcut[B]) IsProjection() bool { return s.Conv != nil }

// Forward returns x unchanged, or its projection.
func (s *Shortcut[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if s.Conv == nil {
		return x
	}
	return s.Norm.Forward(s.Conv.Forward(x))
}

// Parameters returns the projection parameters, or nil for the identity.
func (s *Shortcut[B]) Parameters() []*nn.Parameter[B] {
	if s.Conv == nil {
		return nil
	}
	return append(s.Conv.Parameters(), s.Norm.Parameters()...)
}

// StateDict uses the keys "0.*" for the conv and "1.*" for the norm.
func (s *Shortcut[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	if s.Conv != nil {
		nn.MergeStateDict(stateDict, "0", s.Conv.StateDict())
		nn.MergeStateDict(stateDict, "1", s.Norm.StateDict())
	}
	return stateDict
}

// LoadStateDict loads the projection state.
func (s *Shortcut[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if s.Conv == nil {
		return nil
	}
	if err := nn.LoadSubStateDict[B](s.Conv, stateDict, "0"); err != nil {
		return err
	}
	return nn.LoadSubStateDict[B](s.Norm, stateDict, "1")
}

// BasicBlock is the expansion-1 residual unit:
//
//	out = relu(norm1(conv1(x)))      conv1: 3x3, stride
//	out = norm2(conv2(out))          conv2: 3x3, stride 1
//	out = relu(out + shortcut(x))
type BasicBlock[B tensor.Backend] struct {
	Conv1 *nn.Conv2D[B]
	Norm1 nn.Norm[B]
	Conv2 *nn.Conv2D[B]
	Norm2 nn.Norm[B]

	shortcut *Shortcut[B]
	planes   int
}

// NewBasicBlock creates a BasicBlock mapping inPlanes channels to planes.
func NewBasicBlock[B tensor.Backend](inPlanes, planes, stride int, scheme nn.Scheme, backend B) (*BasicBlock[B], error) {
	norm1, err := nn.NewNorm(planes, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("norm1: %w", err)
	}
	norm2, err := nn.NewNorm(planes, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("norm2: %w", err)
	}
	shortcut, err := newShortcut(inPlanes, planes, stride, scheme, backend)
	if err != nil {
		return nil, err
	}

	return &BasicBlock[B]{
		Conv1:    nn.NewConv2D(inPlanes, planes, 3, stride, 1, false, backend),
		Norm1:    norm1,
		Conv2:    nn.NewConv2D(planes, planes, 3, 1, 1, false, backend),
		Norm2:    norm2,
		shortcut: shortcut,
		planes:   planes,
	}, nil
}

// Forward computes the residual unit.
func (b *BasicBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := relu(b.Norm1.Forward(b.Conv1.Forward(x)))
	out = b.Norm2.Forward(b.Conv2.Forward(out))
	return relu(out.Add(b.shortcut.Forward(x)))
}

// Parameters returns all trainable parameters of the block.
func (b *BasicBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, b.Conv1.Parameters()...)
	params = append(params, b.Norm1.Parameters()...)
	params = append(params, b.Conv2.Parameters()...)
	params = append(params, b.Norm2.Parameters()...)
	return append(params, b.shortcut.Parameters()...)
}

// StateDict returns the block state keyed conv1, norm1, conv2, norm2, shortcut.
func (b *BasicBlock[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(stateDict, "conv1", b.Conv1.StateDict())
	nn.MergeStateDict(stateDict, "norm1", b.Norm1.StateDict())
	nn.MergeStateDict(stateDict, "conv2", b.Conv2.StateDict())
	nn.MergeStateDict(stateDict, "norm2", b.Norm2.StateDict())
	nn.MergeStateDict(stateDict, "shortcut", b.shortcut.StateDict())
	return stateDict
}

// LoadStateDict loads the block state.
func (b *BasicBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadNamed(stateDict, []named[B]{
		{"conv1", b.Conv1},
		{"norm1", b.Norm1},
		{"conv2", b.Conv2},
		{"norm2", b.Norm2},
		{"shortcut", b.shortcut},
	})
}

// Expansion returns 1.
func (b *BasicBlock[B]) Expansion() int { return BlockBasic.Expansion() }

// OutChannels returns planes.
func (b *BasicBlock[B]) OutChannels() int { return b.planes }

// Norms returns norm1, norm2 and the projection norm if present.
func (b *BasicBlock[B]) Norms() []nn.Norm[B] {
	norms := []nn.Norm[B]{b.Norm1, b.Norm2}
	if b.shortcut.IsProjection() {
		norms = append(norms, b.shortcut.Norm)
	}
	return norms
}

// OutputNorm returns norm2.
func (b *BasicBlock[B]) OutputNorm() nn.Norm[B] { return b.Norm2 }

// Shortcut returns the skip connection.
func (b *BasicBlock[B]) Shortcut() *Shortcut[B] { return b.shortcut }

// HasProjection reports whether the skip connection is a projection.
func (b *BasicBlock[B]) HasProjection() bool { return b.shortcut.IsProjection() }

// Bottleneck is the expansion-4 residual unit:
//
//	out = relu(norm1(conv1(x)))      conv1: 1x1
//	out = relu(norm2(conv2(out)))    conv2: 3x3, stride
//	out = norm3(conv3(out))          conv3: 1x1 to 4*planes
//	out = relu(out + shortcut(x))
type Bottleneck[B tensor.Backend] struct {
	Conv1 *nn.Conv2D[B]
	Norm1 nn.Norm[B]
	Conv2 *nn.Conv2D[B]
	Norm2 nn.Norm[B]
	Conv3 *nn.Conv2D[B]
	Norm3 nn.Norm[B]

	shortcut *Shortcut[B]
	planes   int
}

// NewBottleneck creates a Bottleneck mapping inPlanes channels to 4*planes.
func NewBottleneck[B tensor.Backend](inPlanes, planes, stride int, scheme nn.Scheme, backend B) (*Bottleneck[B], error) {
	out := planes * BlockBottleneck.Expansion()

	norm1, err := nn.NewNorm(planes, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("norm1: %w", err)
	}
	norm2, err := nn.NewNorm(planes, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("norm2: %w", err)
	}
	norm3, err := nn.NewNorm(out, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("norm3: %w", err)
	}
	shortcut, err := newShortcut(inPlanes, out, stride, scheme, backend)
	if err != nil {
		return nil, err
	}

	return &Bottleneck[B]{
		Conv1:    nn.NewConv2D(inPlanes, planes, 1, 1, 0, false, backend),
		Norm1:    norm1,
		Conv2:    nn.NewConv2D(planes, planes, 3, stride, 1, false, backend),
		Norm2:    norm2,
		Conv3:    nn.NewConv2D(planes, out, 1, 1, 0, false, backend),
		Norm3:    norm3,
		shortcut: shortcut,
		planes:   planes,
	}, nil
}

// Forward computes the residual unit.
func (b *Bottleneck[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := relu(b.Norm1.Forward(b.Conv1.Forward(x)))
	out = relu(b.Norm2.Forward(b.Conv2.Forward(out)))
	out = b.Norm3.Forward(b.Conv3.Forward(out))
	return relu(out.Add(b.shortcut.Forward(x)))
}

// Parameters returns all trainable parameters of the block.
func (b *Bottleneck[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, b.Conv1.Parameters()...)
	params = append(params, b.Norm1.Parameters()...)
	params = append(params, b.Conv2.Parameters()...)
	params = append(params, b.Norm2.Parameters()...)
	params = append(params, b.Conv3.Parameters()...)
	params = append(params, b.Norm3.Parameters()...)
	return append(params, b.shortcut.Parameters()...)
}

// StateDict returns the block state keyed conv1..3, norm1..3, shortcut.
func (b *Bottleneck[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(stateDict, "conv1", b.Conv1.StateDict())
	nn.MergeStateDict(stateDict, "norm1", b.Norm1.StateDict())
	nn.MergeStateDict(stateDict, "conv2", b.Conv2.StateDict())
	nn.MergeStateDict(stateDict, "norm2", b.Norm2.StateDict())
	nn.MergeStateDict(stateDict, "conv3", b.Conv3.StateDict())
	nn.MergeStateDict(stateDict, "norm3", b.Norm3.StateDict())
	nn.MergeStateDict(stateDict, "shortcut", b.shortcut.StateDict())
	return stateDict
}

// LoadStateDict loads the block state.
func (b *Bottleneck[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadNamed(stateDict, []named[B]{
		{"conv1", b.Conv1},
		{"norm1", b.Norm1},
		{"conv2", b.Conv2},
		{"norm2", b.Norm2},
		{"conv3", b.Conv3},
		{"norm3", b.Norm3},
		{"shortcut", b.shortcut},
	})
}

// Expansion returns 4.
func (b *Bottleneck[B]) Expansion() int { return BlockBottleneck.Expansion() }

// OutChannels returns 4*planes.
func (b *Bottleneck[B]) OutChannels() int { return b.planes * b.Expansion() }

// Norms returns norm1..norm3 and the projection norm if present.
func (b *Bottleneck[B]) Norms() []nn.Norm[B] {
	norms := []nn.Norm[B]{b.Norm1, b.Norm2, b.Norm3}
	if b.shortcut.IsProjection() {
		norms = append(norms, b.shortcut.Norm)
	}
	return norms
}

// OutputNorm returns norm3.
func (b *Bottleneck[B]) OutputNorm() nn.Norm[B] { return b.Norm3 }

// Shortcut returns the skip connection.
func (b *Bottleneck[B]) Shortcut() *Shortcut[B] { return b.shortcut }

// HasProjection reports whether the skip connection is a projection.
func (b *Bottleneck[B]) HasProjection() bool { return b.shortcut.IsProjection() }

type named[B tensor.Backend] struct {
	prefix string
	module nn.Module[B]
}

func loadNamed[B tensor.Backend](stateDict map[string]*tensor.RawTensor, modules []named[B]) error {
	for _, m := range modules {
		if err := nn.LoadSubStateDict[B](m.module, stateDict, m.prefix); err != nil {
			return err
		}
	}
	return nil
}
