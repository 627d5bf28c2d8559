// Package nn implements the normalization layers and the layer glue used by
// the convnorm architectures.
//
// This package provides:
//   - Scheme: closed enumeration of the supported normalization schemes
//   - Norm: common interface of every normalization layer
//   - Identity, BatchNorm2D, GroupNorm2D: the primitive normalizations
//   - GroupThenBatchNorm2D, BatchThenGroupNorm2D, ParallelGroupBatchNorm2D:
//     hybrid group/batch combinations
//   - NewNorm: factory that maps a Scheme and a channel count to a layer
//   - Conv2D, MaxPool2D, AvgPool2D, GlobalAvgPool2D, Flatten: thin layers
//     completing born's primitives so they satisfy nn.Module
//
// All layers satisfy born's nn.Module and can be placed inside a born
// Sequential container.
package nn

import (
	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// Module is born's module interface, re-exported for convenience.
type Module[B tensor.Backend] = bornnn.Module[B]

// Parameter is born's trainable parameter, re-exported for convenience.
type Parameter[B tensor.Backend] = bornnn.Parameter[B]

// Trainer is implemented by modules whose forward computation differs
// between training and evaluation.
type Trainer interface {
	SetTraining(training bool)
	Training() bool
}

// Norm is the common interface of every normalization layer.
//
// A Norm consumes [N, C, H, W] and produces a tensor of the same shape,
// where C must equal Channels().
type Norm[B tensor.Backend] interface {
	Module[B]
	Trainer

	// Scheme reports which normalization scheme the layer implements.
	Scheme() Scheme

	// Channels returns the channel count the layer was built for.
	Channels() int
}

// SetTraining switches m and every module reachable from it into training
// (true) or evaluation (false) mode.
//
// Modules implementing Trainer are switched directly; born Sequential
// containers are walked recursively. Other modules are left untouched.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	switch v := m.(type) {
	case Trainer:
		v.SetTraining(training)
	case *bornnn.Sequential[B]:
		for i := 0; i < v.Len(); i++ {
			SetTraining(v.Module(i), training)
		}
	}
}
