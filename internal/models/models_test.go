package models

import (
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnorm/internal/nn"
)

type Backend = *cpu.Backend

func TestParseArchitecture(t *testing.T) {
	for _, a := range Architectures() {
		parsed, err := ParseArchitecture(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	got, err := ParseArchitecture("resnet50")
	require.NoError(t, err)
	assert.Equal(t, ResNet50, got)

	_, err = ParseArchitecture("AlexNet")
	assert.ErrorIs(t, err, ErrUnknownArchitecture)
}

func TestBuild_Errors(t *testing.T) {
	backend := cpu.New()

	_, err := Build(Architecture(99), 10, nn.SchemeBatch, backend)
	assert.ErrorIs(t, err, ErrUnknownArchitecture)

	_, err = Build(ResNet50, 0, nn.SchemeBatch, backend)
	assert.ErrorIs(t, err, ErrInvalidClassCount)

	_, err = Build(VGG16, -1, nn.SchemeNone, backend)
	assert.ErrorIs(t, err, ErrInvalidClassCount)

	_, err = Build(VGG16, 10, nn.Scheme(17), backend)
	assert.ErrorIs(t, err, nn.ErrUnknownScheme)

	_, err = BuildByName("ResNet9000", 10, "bn", backend)
	assert.ErrorIs(t, err, ErrUnknownArchitecture)

	net, err := BuildByName("ResNet50", 10, "layer_norm", backend)
	assert.ErrorIs(t, err, nn.ErrUnknownScheme)
	assert.Nil(t, net)
}

// expectedNorm returns a zero value of the concrete layer type of scheme.
func expectedNorm(scheme nn.Scheme) any {
	switch scheme {
	case nn.SchemeBatch:
		return &nn.BatchNorm2D[Backend]{}
	case nn.SchemeGroup:
		return &nn.GroupNorm2D[Backend]{}
	case nn.SchemeGroupThenBatch:
		return &nn.GroupThenBatchNorm2D[Backend]{}
	case nn.SchemeBatchThenGroup:
		return &nn.BatchThenGroupNorm2D[Backend]{}
	case nn.SchemeParallel:
		return &nn.ParallelGroupBatchNorm2D[Backend]{}
	default:
		return &nn.Identity[Backend]{}
	}
}

func TestBuild_ProbeNormTypes(t *testing.T) {
	backend := cpu.New()

	for _, arch := range []Architecture{VGG16, ResNet50} {
		for _, scheme := range nn.Schemes() {
			t.Run(arch.String()+"/"+scheme.String(), func(t *testing.T) {
				net, err := BuildByName(arch.String(), 10, scheme.String(), backend)
				require.NoError(t, err)

				want := expectedNorm(scheme)
				assert.IsType(t, want, net.StemNorm())
				assert.IsType(t, want, net.ProbeNorm())
				for _, norm := range net.Norms() {
					assert.IsType(t, want, norm)
				}
				assert.Equal(t, scheme, net.Scheme())
				assert.Equal(t, arch, net.Architecture())
				assert.Equal(t, 10, net.NumClasses())
			})
		}
	}
}

func TestBuildByName_NoneIsEmptyString(t *testing.T) {
	net, err := BuildByName("VGG16", 10, "", cpu.New())
	require.NoError(t, err)
	assert.Equal(t, nn.SchemeNone, net.Scheme())
	assert.IsType(t, &nn.Identity[Backend]{}, net.StemNorm())
}

func TestParameterCounts(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		arch    Architecture
		scheme  nn.Scheme
		classes int
		want    int
	}{
		{ResNet18, nn.SchemeBatch, 10, 11173962},
		{ResNet34, nn.SchemeBatch, 10, 21282122},
		{ResNet50, nn.SchemeBatch, 10, 23520842},
		{ResNet50, nn.SchemeNone, 10, 23467722},
		{ResNet50, nn.SchemeParallel, 10, 23573962},
		{ResNet50, nn.SchemeBatch, 100, 23705252},
		{VGG16, nn.SchemeBatch, 10, 14728266},
		{VGG16, nn.SchemeNone, 10, 14719818},
	}

	for _, tt := range tests {
		t.Run(tt.arch.String()+"/"+tt.scheme.String(), func(t *testing.T) {
			net, err := Build(tt.arch, tt.classes, tt.scheme, backend)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Summarize(net).Parameters)
		})
	}
}

func TestDeepResNets(t *testing.T) {
	if testing.Short() {
		t.Skip("builds ResNet101 and ResNet152")
	}
	backend := cpu.New()

	for arch, want := range map[Architecture]int{ResNet101: 42512970, ResNet152: 58156618} {
		net, err := Build(arch, 10, nn.SchemeBatch, backend)
		require.NoError(t, err)
		assert.Equal(t, want, Summarize(net).Parameters, arch.String())
	}
}

func TestSummarize(t *testing.T) {
	net, err := Build(ResNet50, 10, nn.SchemeBatch, cpu.New())
	require.NoError(t, err)

	s := Summarize(net)
	// stem + 16 blocks x 3 + 4 projections
	assert.Equal(t, map[string]int{"BatchNorm2D": 53}, s.Norms)
	assert.Equal(t, "BatchNorm2D", s.StemNorm)
	assert.Equal(t, "BatchNorm2D", s.ProbeNorm)
	// running mean and variance mirror gamma and beta
	assert.Equal(t, s.Parameters-23467722, s.Buffers)
	assert.Contains(t, s.String(), "ResNet50 (norm=bn, classes=10)")
}

func TestSetTraining_Network(t *testing.T) {
	backend := cpu.New()

	for _, arch := range []Architecture{VGG16, ResNet18} {
		net, err := Build(arch, 10, nn.SchemeGroupThenBatch, backend)
		require.NoError(t, err)

		net.SetTraining(false)
		assert.False(t, net.Training())
		for _, norm := range net.Norms() {
			assert.False(t, norm.Training(), arch.String())
		}

		net.SetTraining(true)
		assert.True(t, net.ProbeNorm().Training())
	}
}

func TestForward_RejectsBadInput(t *testing.T) {
	backend := cpu.New()
	net, err := Build(ResNet18, 10, nn.SchemeGroup, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { net.Forward(tensor.Zeros[float32](tensor.Shape{1, 1, 32, 32}, backend)) })
	assert.Panics(t, func() { net.Forward(tensor.Zeros[float32](tensor.Shape{3, 32, 32}, backend)) })
}

func TestForward_ResNet18(t *testing.T) {
	if testing.Short() {
		t.Skip("full ResNet18 forward pass")
	}
	backend := cpu.New()
	net, err := Build(ResNet18, 10, nn.SchemeParallel, backend)
	require.NoError(t, err)

	x := tensor.Randn[float32](tensor.Shape{2, 3, 32, 32}, backend)
	assert.Equal(t, tensor.Shape{2, 10}, net.Forward(x).Shape())

	// Global pooling accepts other resolutions.
	x = tensor.Randn[float32](tensor.Shape{2, 3, 64, 48}, backend)
	assert.Equal(t, tensor.Shape{2, 10}, net.Forward(x).Shape())
}

func TestForward_ResNet50(t *testing.T) {
	if testing.Short() {
		t.Skip("full ResNet50 forward pass")
	}
	backend := cpu.New()
	net, err := Build(ResNet50, 10, nn.SchemeBatch, backend)
	require.NoError(t, err)

	out := net.Forward(tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend))
	assert.Equal(t, tensor.Shape{1, 10}, out.Shape())
}

func TestForward_VGG16(t *testing.T) {
	if testing.Short() {
		t.Skip("full VGG16 forward pass")
	}
	backend := cpu.New()
	net, err := Build(VGG16, 100, nn.SchemeGroup, backend)
	require.NoError(t, err)

	out := net.Forward(tensor.Randn[float32](tensor.Shape{2, 3, 32, 32}, backend))
	assert.Equal(t, tensor.Shape{2, 100}, out.Shape())
}
