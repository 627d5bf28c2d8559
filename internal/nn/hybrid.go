package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// pair holds the group and batch normalization layers of a hybrid scheme.
type pair[B tensor.Backend] struct {
	Group *GroupNorm2D[B]
	Batch *BatchNorm2D[B]
}

func newPair[B tensor.Backend](channels int, backend B, opts []NormOption) pair[B] {
	return pair[B]{
		Group: NewGroupNorm2D(channels, backend, opts...),
		Batch: NewBatchNorm2D(channels, backend, opts...),
	}
}

func (p *pair[B]) parameters() []*Parameter[B] {
	params := p.Group.Parameters()
	return append(params, p.Batch.Parameters()...)
}

func (p *pair[B]) stateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	MergeStateDict(stateDict, "gn", p.Group.StateDict())
	MergeStateDict(stateDict, "bn", p.Batch.StateDict())
	return stateDict
}

func (p *pair[B]) loadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := LoadSubStateDict[B](p.Group, stateDict, "gn"); err != nil {
		return err
	}
	return LoadSubStateDict[B](p.Batch, stateDict, "bn")
}

func (p *pair[B]) setTraining(training bool) {
	p.Group.SetTraining(training)
	p.Batch.SetTraining(training)
}

// GroupThenBatchNorm2D computes BN(GN(x)).
type GroupThenBatchNorm2D[B tensor.Backend] struct {
	pair[B]
}

// NewGroupThenBatchNorm2D creates the sequential group-first hybrid.
// Panics under the same conditions as NewGroupNorm2D.
func NewGroupThenBatchNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *GroupThenBatchNorm2D[B] {
	return &GroupThenBatchNorm2D[B]{pair: newPair(channels, backend, opts)}
}

// Forward applies group normalization, then batch normalization.
func (l *GroupThenBatchNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return l.Batch.Forward(l.Group.Forward(x))
}

// Parameters returns the group parameters followed by the batch parameters.
func (l *GroupThenBatchNorm2D[B]) Parameters() []*Parameter[B] { return l.parameters() }

// StateDict returns both sub-layer states under the "gn." and "bn." prefixes.
func (l *GroupThenBatchNorm2D[B]) StateDict() map[string]*tensor.RawTensor { return l.stateDict() }

// LoadStateDict loads both sub-layer states.
func (l *GroupThenBatchNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return l.loadStateDict(stateDict)
}

// SetTraining propagates the mode to both sub-layers.
func (l *GroupThenBatchNorm2D[B]) SetTraining(training bool) { l.setTraining(training) }

// Training reports the mode of the batch sub-layer.
func (l *GroupThenBatchNorm2D[B]) Training() bool { return l.Batch.Training() }

// Scheme returns SchemeGroupThenBatch.
func (l *GroupThenBatchNorm2D[B]) Scheme() Scheme { return SchemeGroupThenBatch }

// Channels returns the number of normalized channels.
func (l *GroupThenBatchNorm2D[B]) Channels() int { return l.Group.Channels() }

func (l *GroupThenBatchNorm2D[B]) String() string {
	return fmt.Sprintf("GroupThenBatchNorm2D(%s -> %s)", l.Group, l.Batch)
}

// BatchThenGroupNorm2D computes GN(BN(x)).
type BatchThenGroupNorm2D[B tensor.Backend] struct {
	pair[B]
}

// NewBatchThenGroupNorm2D creates the sequential batch-first hybrid.
// Panics under the same conditions as NewGroupNorm2D.
func NewBatchThenGroupNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *BatchThenGroupNorm2D[B] {
	return &BatchThenGroupNorm2D[B]{pair: newPair(channels, backend, opts)}
}

// Forward applies batch normalization, then group normalization.
func (l *BatchThenGroupNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return l.Group.Forward(l.Batch.Forward(x))
}

// Parameters returns the group parameters followed by the batch parameters.
func (l *BatchThenGroupNorm2D[B]) Parameters() []*Parameter[B] { return l.parameters() }

// StateDict returns both sub-layer states under the "gn." and "bn." prefixes.
func (l *BatchThenGroupNorm2D[B]) StateDict() map[string]*tensor.RawTensor { return l.stateDict() }

// LoadStateDict loads both sub-layer states.
func (l *BatchThenGroupNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return l.loadStateDict(stateDict)
}

// SetTraining propagates the mode to both sub-layers.
func (l *BatchThenGroupNorm2D[B]) SetTraining(training bool) { l.setTraining(training) }

// Training reports the mode of the batch sub-layer.
func (l *BatchThenGroupNorm2D[B]) Training() bool { return l.Batch.Training() }

// Scheme returns SchemeBatchThenGroup.
func (l *BatchThenGroupNorm2D[B]) Scheme() Scheme { return SchemeBatchThenGroup }

// Channels returns the number of normalized channels.
func (l *BatchThenGroupNorm2D[B]) Channels() int { return l.Group.Channels() }

func (l *BatchThenGroupNorm2D[B]) String() string {
	return fmt.Sprintf("BatchThenGroupNorm2D(%s -> %s)", l.Batch, l.Group)
}

// ParallelGroupBatchNorm2D applies GN and BN to the same input and averages
// the two results: 0.5 * (GN(x) + BN(x)).
type ParallelGroupBatchNorm2D[B tensor.Backend] struct {
	pair[B]
}

// NewParallelGroupBatchNorm2D creates the parallel hybrid.
// Panics under the same conditions as NewGroupNorm2D.
func NewParallelGroupBatchNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *ParallelGroupBatchNorm2D[B] {
	return &ParallelGroupBatchNorm2D[B]{pair: newPair(channels, backend, opts)}
}

// Forward returns the mean of both branches.
func (l *ParallelGroupBatchNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	g := l.Group.Forward(x)
	b := l.Batch.Forward(x)
	return g.Add(b).MulScalar(0.5)
}

// Parameters returns the group parameters followed by the batch parameters.
func (l *ParallelGroupBatchNorm2D[B]) Parameters() []*Parameter[B] { return l.parameters() }

// StateDict returns both branch states under the "gn." and "bn." prefixes.
func (l *ParallelGroupBatchNorm2D[B]) StateDict() map[string]*tensor.RawTensor { return l.stateDict() }

// LoadStateDict loads both branch states.
func (l *ParallelGroupBatchNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return l.loadStateDict(stateDict)
}

// SetTraining propagates the mode to both branches.
func (l *ParallelGroupBatchNorm2D[B]) SetTraining(training bool) { l.setTraining(training) }

// Training reports the mode of the batch branch.
func (l *ParallelGroupBatchNorm2D[B]) Training() bool { return l.Batch.Training() }

// Scheme returns SchemeParallel.
func (l *ParallelGroupBatchNorm2D[B]) Scheme() Scheme { return SchemeParallel }

// Channels returns the number of normalized channels.
func (l *ParallelGroupBatchNorm2D[B]) Channels() int { return l.Group.Channels() }

func (l *ParallelGroupBatchNorm2D[B]) String() string {
	return fmt.Sprintf("ParallelGroupBatchNorm2D(%s | %s)", l.Group, l.Batch)
}
