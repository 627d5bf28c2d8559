package models

import (
	"fmt"

	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// stemChannels is the width of the first convolution and of stage 1.
const stemChannels = 64

// stagePlanes and stageStrides describe the four ResNet stages.
var (
	stagePlanes  = [4]int{64, 128, 256, 512}
	stageStrides = [4]int{1, 2, 2, 2}
)

// ResNetConfig describes a ResNet depth.
type ResNetConfig struct {
	Kind   BlockKind
	Blocks [4]int
}

var resNetConfigs = map[Architecture]ResNetConfig{
	ResNet18:  {Kind: BlockBasic, Blocks: [4]int{2, 2, 2, 2}},
	ResNet34:  {Kind: BlockBasic, Blocks: [4]int{3, 4, 6, 3}},
	ResNet50:  {Kind: BlockBottleneck, Blocks: [4]int{3, 4, 6, 3}},
	ResNet101: {Kind: BlockBottleneck, Blocks: [4]int{3, 4, 23, 3}},
	ResNet152: {Kind: BlockBottleneck, Blocks: [4]int{3, 8, 36, 3}},
}

// ResNetConfigFor returns the configuration of a ResNet architecture.
func ResNetConfigFor(arch Architecture) (ResNetConfig, bool) {
	cfg, ok := resNetConfigs[arch]
	return cfg, ok
}

// Stage is an ordered run of residual blocks. Only the first block may change
// the stride or the channel count.
type Stage[B tensor.Backend] struct {
	Blocks []Block[B]
}

// NewStage creates count blocks of kind. The first block uses stride and maps
// inPlanes channels; the rest use stride 1 on planes*expansion channels.
func NewStage[B tensor.Backend](kind BlockKind, inPlanes, planes, count, stride int, scheme nn.Scheme, backend B) (*Stage[B], error) {
	if count <= 0 {
		return nil, fmt.Errorf("stage: invalid block count %d", count)
	}

	stage := &Stage[B]{Blocks: make([]Block[B], 0, count)}
	for i := 0; i < count; i++ {
		s := 1
		if i == 0 {
			s = stride
		}
		block, err := NewBlock(kind, inPlanes, planes, s, scheme, backend)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		stage.Blocks = append(stage.Blocks, block)
		inPlanes = block.OutChannels()
	}
	return stage, nil
}

// Len returns the number of blocks.
func (s *Stage[B]) Len() int { return len(s.Blocks) }

// Block returns block i.
func (s *Stage[B]) Block(i int) Block[B] { return s.Blocks[i] }

// OutChannels returns the channel count produced by the stage.
func (s *Stage[B]) OutChannels() int { return s.Blocks[len(s.Blocks)-1].OutChannels() }

// Forward runs the blocks in order.
func (s *Stage[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	for _, block := range s.Blocks {
		x = block.Forward(x)
	}
	return x
}

// Parameters returns the parameters of every block.
func (s *Stage[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, block := range s.Blocks {
		params = append(params, block.Parameters()...)
	}
	return params
}

// StateDict prefixes each block's state with its index.
func (s *Stage[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, block := range s.Blocks {
		nn.MergeStateDict(stateDict, fmt.Sprint(i), block.StateDict())
	}
	return stateDict
}

// LoadStateDict loads each block's state.
func (s *Stage[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, block := range s.Blocks {
		if err := nn.LoadSubStateDict[B](block, stateDict, fmt.Sprint(i)); err != nil {
			return err
		}
	}
	return nil
}

// Norms returns the norms of every block in order.
func (s *Stage[B]) Norms() []nn.Norm[B] {
	var norms []nn.Norm[B]
	for _, block := range s.Blocks {
		norms = append(norms, block.Norms()...)
	}
	return norms
}

// ResNet is the CIFAR-style residual network.
//
// Architecture:
//
//	conv1 (3x3, 3->64, stride 1) -> norm1 -> relu
//	layer1..layer4 (planes 64/128/256/512, strides 1/2/2/2)
//	global average pool -> flatten -> linear(512*expansion, classes)
//
// Example:
//
//	backend := cpu.New()
//	net, err := models.NewResNet(models.ResNet50, 10, nn.SchemeBatch, backend)
//	logits := net.Forward(images) // [N, 3, 32, 32] -> [N, 10]
type ResNet[B tensor.Backend] struct {
	Conv1   *nn.Conv2D[B]
	Norm1   nn.Norm[B]
	Layers  [4]*Stage[B]
	Pool    *nn.GlobalAvgPool2D[B]
	Flatten *nn.Flatten[B]
	Linear  *bornnn.Linear[B]

	arch     Architecture
	config   ResNetConfig
	classes  int
	scheme   nn.Scheme
	training bool
}

// NewResNet builds a ResNet architecture for classes outputs with the given
// normalization scheme.
func NewResNet[B tensor.Backend](arch Architecture, classes int, scheme nn.Scheme, backend B) (*ResNet[B], error) {
	cfg, ok := resNetConfigs[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a ResNet", ErrUnknownArchitecture, arch)
	}
	if classes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClassCount, classes)
	}

	norm1, err := nn.NewNorm(stemChannels, scheme, backend)
	if err != nil {
		return nil, fmt.Errorf("%s norm1: %w", arch, err)
	}

	net := &ResNet[B]{
		Conv1:    nn.NewConv2D(3, stemChannels, 3, 1, 1, false, backend),
		Norm1:    norm1,
		Pool:     nn.NewGlobalAvgPool2D[B](),
		Flatten:  nn.NewFlatten[B](),
		arch:     arch,
		config:   cfg,
		classes:  classes,
		scheme:   scheme,
		training: true,
	}

	inPlanes := stemChannels
	for i := range net.Layers {
		stage, err := NewStage(cfg.Kind, inPlanes, stagePlanes[i], cfg.Blocks[i], stageStrides[i], scheme, backend)
		if err != nil {
			return nil, fmt.Errorf("%s layer%d: %w", arch, i+1, err)
		}
		net.Layers[i] = stage
		inPlanes = stage.OutChannels()
	}
	net.Linear = bornnn.NewLinear(inPlanes, classes, backend)

	return net, nil
}

// Forward maps [N, 3, H, W] images to [N, classes] logits.
//
// Any spatial size that survives the three stride-2 stages is accepted; the
// final feature map is averaged over its full extent.
func (r *ResNet[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkInput(r.arch.String(), x)

	out := relu(r.Norm1.Forward(r.Conv1.Forward(x)))
	for _, stage := range r.Layers {
		out = stage.Forward(out)
	}
	out = r.Flatten.Forward(r.Pool.Forward(out))
	return r.Linear.Forward(out)
}

// Parameters returns every trainable parameter in forward order.
func (r *ResNet[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, r.Conv1.Parameters()...)
	params = append(params, r.Norm1.Parameters()...)
	for _, stage := range r.Layers {
		params = append(params, stage.Parameters()...)
	}
	return append(params, r.Linear.Parameters()...)
}

// StateDict returns the network state with keys such as
// "layer4.2.norm3.running_mean" and "linear.weight".
func (r *ResNet[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(stateDict, "conv1", r.Conv1.StateDict())
	nn.MergeStateDict(stateDict, "norm1", r.Norm1.StateDict())
	for i, stage := range r.Layers {
		nn.MergeStateDict(stateDict, layerName(i), stage.StateDict())
	}
	nn.MergeStateDict(stateDict, "linear", r.Linear.StateDict())
	return stateDict
}

// LoadStateDict loads a state produced by StateDict.
func (r *ResNet[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	modules := []named[B]{
		{"conv1", r.Conv1},
		{"norm1", r.Norm1},
	}
	for i, stage := range r.Layers {
		modules = append(modules, named[B]{layerName(i), stage})
	}
	modules = append(modules, named[B]{"linear", r.Linear})
	return loadNamed(stateDict, modules)
}

// SetTraining switches every norm between batch and running statistics.
func (r *ResNet[B]) SetTraining(training bool) {
	r.training = training
	for _, norm := range r.Norms() {
		norm.SetTraining(training)
	}
}

// Training reports the current mode.
func (r *ResNet[B]) Training() bool { return r.training }

// Architecture returns the depth variant.
func (r *ResNet[B]) Architecture() Architecture { return r.arch }

// Config returns the block kind and per-stage block counts.
func (r *ResNet[B]) Config() ResNetConfig { return r.config }

// NumClasses returns the number of output logits.
func (r *ResNet[B]) NumClasses() int { return r.classes }

// Scheme returns the normalization scheme used throughout the network.
func (r *ResNet[B]) Scheme() nn.Scheme { return r.scheme }

// StemNorm returns norm1.
func (r *ResNet[B]) StemNorm() nn.Norm[B] { return r.Norm1 }

// ProbeNorm returns the output norm of the last block of layer4.
func (r *ResNet[B]) ProbeNorm() nn.Norm[B] {
	last := r.Layers[3]
	return last.Block(last.Len() - 1).OutputNorm()
}

// Norms returns every normalization layer in forward order.
func (r *ResNet[B]) Norms() []nn.Norm[B] {
	norms := []nn.Norm[B]{r.Norm1}
	for _, stage := range r.Layers {
		norms = append(norms, stage.Norms()...)
	}
	return norms
}

func (r *ResNet[B]) String() string {
	return fmt.Sprintf("%s(block=%s, blocks=%v, classes=%d, norm=%s)",
		r.arch, r.config.Kind, r.config.Blocks, r.classes, r.scheme)
}

func layerName(i int) string {
	return fmt.Sprintf("layer%d", i+1)
}
