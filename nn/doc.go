// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the pluggable normalization layers used by the
// convnorm architectures.
//
// # Overview
//
// Six schemes are supported:
//
//	none                         Identity
//	bn                           BatchNorm2D
//	gn                           GroupNorm2D (32 groups)
//	gn_plus_sequential_gn_first  GroupThenBatchNorm2D, BN(GN(x))
//	gn_plus_sequential_bn_first  BatchThenGroupNorm2D, GN(BN(x))
//	gn_plus_parallel             ParallelGroupBatchNorm2D, 0.5 * (GN(x) + BN(x))
//
// Every layer consumes [N, C, H, W] and returns the same shape.
//
// # Basic Usage
//
//	backend := cpu.New()
//
//	norm, err := nn.NewNorm(64, nn.SchemeGroup, backend)
//	if err != nil {
//	    return err
//	}
//	y := norm.Forward(x) // x: [N, 64, H, W]
//
// String identifiers go through ParseScheme or NewNormByName:
//
//	norm, err := nn.NewNormByName(64, "gn_plus_parallel", backend)
//
// # Training and Evaluation
//
// Layers start in training mode. Batch normalization then uses batch
// statistics and updates its running mean and variance; in evaluation mode it
// uses the running statistics. SetTraining switches a layer, or every layer
// inside a born Sequential:
//
//	nn.SetTraining(model, false)
package nn
