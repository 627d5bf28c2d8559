package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// BatchNorm2D applies Batch Normalization over a 4D input [N, C, H, W].
//
// Formula: Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// Where mean and var are per-channel statistics computed over the batch and
// spatial dimensions (N, H, W).
//
// In training mode (the default) the statistics of the current batch are
// used and the running estimates are updated:
//
//	running_mean = (1 - momentum) * running_mean + momentum * mean
//	running_var  = (1 - momentum) * running_var  + momentum * var * n / (n - 1)
//
// where n = N * H * W. In evaluation mode the running estimates are used and
// the output no longer depends on the rest of the batch.
//
// Example:
//
//	backend := cpu.New()
//	bn := nn.NewBatchNorm2D(64, backend)
//	output := bn.Forward(features) // [N, 64, H, W] -> [N, 64, H, W]
type BatchNorm2D[B tensor.Backend] struct {
	affine[B]

	RunningMean *tensor.Tensor[float32, B] // [C], initialized to zeros
	RunningVar  *tensor.Tensor[float32, B] // [C], initialized to ones
	Epsilon     float32
	Momentum    float32

	channels       int
	training       bool
	batchesTracked int
}

// NewBatchNorm2D creates a new BatchNorm2D layer in training mode.
//
// Gamma is initialized to ones, beta to zeros, the running mean to zeros and
// the running variance to ones. Panics if channels is not positive.
func NewBatchNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *BatchNorm2D[B] {
	if channels <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid channels %d", channels))
	}
	cfg := newNormConfig(opts)

	return &BatchNorm2D[B]{
		affine:      newAffine(channels, backend),
		RunningMean: tensor.Zeros[float32](tensor.Shape{channels}, backend),
		RunningVar:  tensor.Ones[float32](tensor.Shape{channels}, backend),
		Epsilon:     cfg.epsilon,
		Momentum:    cfg.momentum,
		channels:    channels,
		training:    true,
	}
}

// Forward normalizes x per channel.
//
// Shapes:
//   - input: [N, C, H, W]
//   - output: [N, C, H, W]
func (bn *BatchNorm2D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	checkImage("batchnorm2d", x, bn.channels)

	shape := x.Shape()
	rows := toChannelRows(x)
	m := rows.Shape()[1]

	var normalized *tensor.Tensor[float32, B]
	if bn.training {
		var mean, variance *tensor.Tensor[float32, B]
		normalized, mean, variance = standardizeRows(rows, bn.Epsilon)
		bn.track(mean, variance, m)
	} else {
		mean := bn.RunningMean.Reshape(bn.channels, 1)
		invStd := bn.RunningVar.Reshape(bn.channels, 1).AddScalar(bn.Epsilon).Rsqrt()
		normalized = rows.Sub(repeatColumn(mean, m)).Mul(repeatColumn(invStd, m))
	}
	return fromChannelRows(bn.applyRows(normalized), shape)
}

// track folds the batch statistics into the running estimates.
func (bn *BatchNorm2D[B]) track(mean, variance *tensor.Tensor[float32, B], n int) {
	batchMean := mean.Data()
	batchVar := variance.Data()
	runningMean := bn.RunningMean.Data()
	runningVar := bn.RunningVar.Data()

	correction := float32(1)
	if n > 1 {
		correction = float32(n) / float32(n-1)
	}

	m := bn.Momentum
	for c := range runningMean {
		runningMean[c] = (1-m)*runningMean[c] + m*batchMean[c]
		runningVar[c] = (1-m)*runningVar[c] + m*batchVar[c]*correction
	}
	bn.batchesTracked++
}

// Parameters returns the learnable parameters (gamma and beta).
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return bn.parameters()
}

// StateDict returns gamma, beta and the running statistics.
func (bn *BatchNorm2D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	bn.stateDict(stateDict)
	stateDict["running_mean"] = bn.RunningMean.Raw()
	stateDict["running_var"] = bn.RunningVar.Raw()
	return stateDict
}

// LoadStateDict loads gamma, beta and the running statistics.
func (bn *BatchNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := bn.loadStateDict(stateDict); err != nil {
		return err
	}
	if err := loadTensor(bn.RunningMean, stateDict, "running_mean"); err != nil {
		return err
	}
	return loadTensor(bn.RunningVar, stateDict, "running_var")
}

// SetTraining switches between batch statistics (true) and running statistics (false).
func (bn *BatchNorm2D[B]) SetTraining(training bool) { bn.training = training }

// Training reports whether batch statistics are in use.
func (bn *BatchNorm2D[B]) Training() bool { return bn.training }

// BatchesTracked returns how many training batches updated the running statistics.
func (bn *BatchNorm2D[B]) BatchesTracked() int { return bn.batchesTracked }

// Scheme returns SchemeBatch.
func (bn *BatchNorm2D[B]) Scheme() Scheme { return SchemeBatch }

// Channels returns the number of normalized channels.
func (bn *BatchNorm2D[B]) Channels() int { return bn.channels }

// String returns a string representation of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(channels=%d, eps=%g, momentum=%g)", bn.channels, bn.Epsilon, bn.Momentum)
}
