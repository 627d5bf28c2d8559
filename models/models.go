// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models provides VGG16 and the CIFAR-style ResNet family with a
// pluggable normalization layer.
//
// # Basic Usage
//
//	backend := cpu.New()
//
//	net, err := models.BuildByName("ResNet50", 10, "gn_plus_sequential_bn_first", backend)
//	if err != nil {
//	    return err
//	}
//	logits := net.Forward(images) // [N, 3, 32, 32] -> [N, 10]
//
// # Introspection
//
// StemNorm returns the normalization following the first convolution and
// ProbeNorm the last normalization of the feature extractor; Summarize counts
// parameters and normalization layers.
package models

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/models"
	"github.com/born-ml/convnorm/internal/nn"
)

// Architecture identifies a network topology.
type Architecture = models.Architecture

// Supported architectures.
const (
	VGG16     = models.VGG16
	ResNet18  = models.ResNet18
	ResNet34  = models.ResNet34
	ResNet50  = models.ResNet50
	ResNet101 = models.ResNet101
	ResNet152 = models.ResNet152
)

// Builder errors.
var (
	ErrUnknownArchitecture = models.ErrUnknownArchitecture
	ErrInvalidClassCount   = models.ErrInvalidClassCount
)

// Network is a classifier mapping [N, 3, H, W] images to [N, classes] logits.
type Network[B tensor.Backend] = models.Network[B]

// ResNet is the residual network.
type ResNet[B tensor.Backend] = models.ResNet[B]

// VGG is the VGG16 network.
type VGG[B tensor.Backend] = models.VGG[B]

// Summary describes a built network.
type Summary = models.Summary

// Architectures returns every supported architecture.
func Architectures() []Architecture { return models.Architectures() }

// ParseArchitecture maps a name such as "ResNet50" to its Architecture.
func ParseArchitecture(name string) (Architecture, error) { return models.ParseArchitecture(name) }

// Build constructs arch for classes outputs with scheme at every
// normalization point.
func Build[B tensor.Backend](arch Architecture, classes int, scheme nn.Scheme, backend B) (Network[B], error) {
	return models.Build(arch, classes, scheme, backend)
}

// BuildByName resolves name and the norm identifier, then calls Build.
// An empty norm selects no normalization.
func BuildByName[B tensor.Backend](name string, classes int, norm string, backend B) (Network[B], error) {
	return models.BuildByName(name, classes, norm, backend)
}

// Summarize counts the parameters and normalization layers of net.
func Summarize[B tensor.Backend](net Network[B]) Summary { return models.Summarize(net) }
