package nn

import (
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestGroupNorm2D_Defaults(t *testing.T) {
	gn := NewGroupNorm2D(64, cpu.New())

	assert.Equal(t, DefaultGroups, gn.Groups)
	assert.Equal(t, SchemeGroup, gn.Scheme())
	assert.Equal(t, 64, gn.Channels())
	assert.Len(t, gn.Parameters(), 2)
	assert.ElementsMatch(t, []string{"gamma", "beta"}, keys(gn.StateDict()))
}

func TestGroupNorm2D_NormalizesEachGroup(t *testing.T) {
	backend := cpu.New()
	gn := NewGroupNorm2D(8, backend, WithGroups(4))

	x := tensor.Randn[float32](tensor.Shape{2, 8, 3, 3}, backend).MulScalar(5).AddScalar(-1)
	y := gn.Forward(x)

	require.Equal(t, x.Shape(), y.Shape())
	for i := 0; i < 2; i++ {
		for g := 0; g < 4; g++ {
			mean, std := stat.PopMeanStdDev(groupValues(y.Data(), y.Shape(), 4, i, g), nil)
			assert.InDelta(t, 0, mean, 1e-4, "sample %d group %d", i, g)
			assert.InDelta(t, 1, std, 1e-3, "sample %d group %d", i, g)
		}
	}
}

func TestGroupNorm2D_IndependentOfBatch(t *testing.T) {
	backend := cpu.New()
	gn := NewGroupNorm2D(4, backend, WithGroups(2))

	batch := tensor.Randn[float32](tensor.Shape{3, 4, 2, 2}, backend)
	first := append([]float32(nil), batch.Data()[:16]...)

	full := gn.Forward(batch).Data()
	alone := gn.Forward(fromSlice(t, backend, first, 1, 4, 2, 2)).Data()

	for i := range alone {
		assert.InDelta(t, alone[i], full[i], 1e-5, "index %d", i)
	}
}

func TestGroupNorm2D_SameInTrainingAndEval(t *testing.T) {
	backend := cpu.New()
	gn := NewGroupNorm2D(4, backend, WithGroups(2))
	x := tensor.Randn[float32](tensor.Shape{2, 4, 2, 2}, backend)

	train := append([]float32(nil), gn.Forward(x).Data()...)
	gn.SetTraining(false)
	eval := gn.Forward(x).Data()

	assert.False(t, gn.Training())
	assert.InDeltaSlice(t, train, eval, 1e-6)
}

func TestGroupNorm2D_InvalidConfiguration(t *testing.T) {
	backend := cpu.New()

	assert.Panics(t, func() { NewGroupNorm2D(48, backend) })
	assert.Panics(t, func() { NewGroupNorm2D(8, backend, WithGroups(0)) })
	assert.Panics(t, func() { NewGroupNorm2D(-32, backend) })
	assert.NotPanics(t, func() { NewGroupNorm2D(96, backend, WithGroups(3)) })
}
