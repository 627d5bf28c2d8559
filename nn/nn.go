// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// Module is born's module interface.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is born's trainable parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Trainer is implemented by modules with distinct training and evaluation behavior.
type Trainer = nn.Trainer

// Norm is the common interface of every normalization layer.
type Norm[B tensor.Backend] = nn.Norm[B]

// Scheme identifies a normalization scheme.
type Scheme = nn.Scheme

// Normalization schemes.
const (
	SchemeNone           = nn.SchemeNone
	SchemeBatch          = nn.SchemeBatch
	SchemeGroup          = nn.SchemeGroup
	SchemeGroupThenBatch = nn.SchemeGroupThenBatch
	SchemeBatchThenGroup = nn.SchemeBatchThenGroup
	SchemeParallel       = nn.SchemeParallel
)

// Errors returned by the factory.
var (
	ErrUnknownScheme   = nn.ErrUnknownScheme
	ErrInvalidChannels = nn.ErrInvalidChannels
	ErrInvalidGroups   = nn.ErrInvalidGroups
)

// Schemes returns every supported scheme.
func Schemes() []Scheme { return nn.Schemes() }

// ParseScheme maps an identifier such as "bn" or "gn_plus_parallel" to a Scheme.
// The empty string selects SchemeNone.
func ParseScheme(name string) (Scheme, error) { return nn.ParseScheme(name) }

// NormOption configures a normalization layer.
type NormOption = nn.NormOption

// WithEpsilon sets the variance epsilon (default 1e-5).
func WithEpsilon(eps float32) NormOption { return nn.WithEpsilon(eps) }

// WithMomentum sets the running statistics momentum of batch normalization (default 0.1).
func WithMomentum(momentum float32) NormOption { return nn.WithMomentum(momentum) }

// WithGroups sets the group count of group normalization (default 32).
func WithGroups(groups int) NormOption { return nn.WithGroups(groups) }

// Layers

// Identity passes its input through unchanged.
type Identity[B tensor.Backend] = nn.Identity[B]

// BatchNorm2D normalizes each channel over the batch and spatial dimensions.
type BatchNorm2D[B tensor.Backend] = nn.BatchNorm2D[B]

// GroupNorm2D normalizes each group of channels per sample.
type GroupNorm2D[B tensor.Backend] = nn.GroupNorm2D[B]

// GroupThenBatchNorm2D computes BN(GN(x)).
type GroupThenBatchNorm2D[B tensor.Backend] = nn.GroupThenBatchNorm2D[B]

// BatchThenGroupNorm2D computes GN(BN(x)).
type BatchThenGroupNorm2D[B tensor.Backend] = nn.BatchThenGroupNorm2D[B]

// ParallelGroupBatchNorm2D computes 0.5 * (GN(x) + BN(x)).
type ParallelGroupBatchNorm2D[B tensor.Backend] = nn.ParallelGroupBatchNorm2D[B]

// NewNorm creates the normalization layer of scheme for channels channels.
//
// Example:
//
//	backend := cpu.New()
//	norm, err := nn.NewNorm(128, nn.SchemeBatch, backend)
func NewNorm[B tensor.Backend](channels int, scheme Scheme, backend B, opts ...NormOption) (Norm[B], error) {
	return nn.NewNorm(channels, scheme, backend, opts...)
}

// NewNormByName parses name and calls NewNorm.
func NewNormByName[B tensor.Backend](channels int, name string, backend B, opts ...NormOption) (Norm[B], error) {
	return nn.NewNormByName(channels, name, backend, opts...)
}

// NewBatchNorm2D creates a batch normalization layer.
func NewBatchNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *BatchNorm2D[B] {
	return nn.NewBatchNorm2D(channels, backend, opts...)
}

// NewGroupNorm2D creates a group normalization layer.
// It panics if channels is not divisible by the group count.
func NewGroupNorm2D[B tensor.Backend](channels int, backend B, opts ...NormOption) *GroupNorm2D[B] {
	return nn.NewGroupNorm2D(channels, backend, opts...)
}

// SetTraining switches m, and every module inside a Sequential, between
// training and evaluation mode.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	nn.SetTraining(m, training)
}
