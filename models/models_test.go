// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package models_test

import (
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnorm/models"
	"github.com/born-ml/convnorm/nn"
)

func TestBuildByName(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name string
		arch string
		norm string
		stem any
	}{
		{"ResNet18 none", "ResNet18", "", &nn.Identity[*cpu.Backend]{}},
		{"ResNet18 bn", "resnet18", "bn", &nn.BatchNorm2D[*cpu.Backend]{}},
		{"ResNet18 parallel", "ResNet18", "gn_plus_parallel", &nn.ParallelGroupBatchNorm2D[*cpu.Backend]{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := models.BuildByName(tt.arch, 10, tt.norm, backend)
			require.NoError(t, err)
			assert.Equal(t, models.ResNet18, net.Architecture())
			assert.IsType(t, tt.stem, net.StemNorm())
			assert.IsType(t, tt.stem, net.ProbeNorm())
		})
	}
}

func TestBuildByName_Errors(t *testing.T) {
	backend := cpu.New()

	_, err := models.BuildByName("AlexNet", 10, "bn", backend)
	assert.ErrorIs(t, err, models.ErrUnknownArchitecture)

	_, err = models.BuildByName("ResNet18", 10, "layer_norm", backend)
	assert.ErrorIs(t, err, nn.ErrUnknownScheme)

	_, err = models.BuildByName("ResNet18", 0, "bn", backend)
	assert.ErrorIs(t, err, models.ErrInvalidClassCount)
}

func TestForward(t *testing.T) {
	if testing.Short() {
		t.Skip("full ResNet18 forward pass")
	}
	backend := cpu.New()

	net, err := models.Build(models.ResNet18, 10, nn.SchemeGroup, backend)
	require.NoError(t, err)

	logits := net.Forward(tensor.Randn[float32](tensor.Shape{2, 3, 32, 32}, backend))
	assert.Equal(t, tensor.Shape{2, 10}, logits.Shape())
}
