package nn

import (
	"math"
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestGroupThenBatchNorm2D_Order(t *testing.T) {
	backend := cpu.New()
	x := tensor.Randn[float32](tensor.Shape{2, 4, 3, 3}, backend).MulScalar(2)

	hybrid := NewGroupThenBatchNorm2D(4, backend, WithGroups(2))
	got := hybrid.Forward(x).Data()

	gn := NewGroupNorm2D(4, backend, WithGroups(2))
	bn := NewBatchNorm2D(4, backend)
	want := bn.Forward(gn.Forward(x)).Data()

	assert.InDeltaSlice(t, want, got, 1e-5)
	assert.Equal(t, 1, hybrid.Batch.BatchesTracked())
}

func TestBatchThenGroupNorm2D_Order(t *testing.T) {
	backend := cpu.New()
	x := tensor.Randn[float32](tensor.Shape{2, 4, 3, 3}, backend).AddScalar(4)

	hybrid := NewBatchThenGroupNorm2D(4, backend, WithGroups(2))
	got := hybrid.Forward(x).Data()

	bn := NewBatchNorm2D(4, backend)
	gn := NewGroupNorm2D(4, backend, WithGroups(2))
	want := gn.Forward(bn.Forward(x)).Data()

	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestSequentialHybrids_OrderMatters(t *testing.T) {
	backend := cpu.New()

	data := make([]float32, 4*8*3*3)
	for i := range data {
		c := (i / 9) % 8
		data[i] = float32(c+1)*float32((i*5)%7) + float32(3*c)
	}
	x, err := tensor.FromSlice(data, tensor.Shape{4, 8, 3, 3}, backend)
	require.NoError(t, err)

	groupFirst := NewGroupThenBatchNorm2D(8, backend, WithGroups(4)).Forward(x).Data()
	batchFirst := NewBatchThenGroupNorm2D(8, backend, WithGroups(4)).Forward(x).Data()
	require.Len(t, batchFirst, len(groupFirst))

	maxDiff := floats.Distance(float64s(groupFirst), float64s(batchFirst), math.Inf(1))
	assert.Greater(t, maxDiff, 1e-3)
}

func TestParallelGroupBatchNorm2D_Average(t *testing.T) {
	backend := cpu.New()
	x := tensor.Randn[float32](tensor.Shape{3, 4, 2, 2}, backend).MulScalar(3)

	hybrid := NewParallelGroupBatchNorm2D(4, backend, WithGroups(2))
	got := hybrid.Forward(x).Data()

	g := NewGroupNorm2D(4, backend, WithGroups(2)).Forward(x).Data()
	b := NewBatchNorm2D(4, backend).Forward(x).Data()
	require.Len(t, got, len(g))

	want := make([]float64, len(g))
	floats.AddTo(want, float64s(g), float64s(b))
	floats.Scale(0.5, want)
	assert.True(t, floats.EqualApprox(want, float64s(got), 1e-5))
}

func float64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func TestHybrid_StateDictPrefixes(t *testing.T) {
	backend := cpu.New()
	layers := []Norm[Backend]{
		NewGroupThenBatchNorm2D(32, backend),
		NewBatchThenGroupNorm2D(32, backend),
		NewParallelGroupBatchNorm2D(32, backend),
	}

	for _, l := range layers {
		assert.ElementsMatch(t, []string{
			"gn.gamma", "gn.beta",
			"bn.gamma", "bn.beta", "bn.running_mean", "bn.running_var",
		}, keys(l.StateDict()), l.Scheme().String())
		assert.Len(t, l.Parameters(), 4)
		assert.Equal(t, 32, l.Channels())
	}
}

func TestHybrid_LoadStateDict(t *testing.T) {
	backend := cpu.New()
	src := NewParallelGroupBatchNorm2D(32, backend)
	copy(src.Batch.RunningMean.Data(), []float32{7})
	copy(src.Group.Gamma.Tensor().Data(), []float32{3})

	dst := NewParallelGroupBatchNorm2D(32, backend)
	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, float32(7), dst.Batch.RunningMean.Data()[0])
	assert.Equal(t, float32(3), dst.Group.Gamma.Tensor().Data()[0])

	err := dst.LoadStateDict(map[string]*tensor.RawTensor{})
	assert.ErrorContains(t, err, "gn")
}

func TestHybrid_SetTrainingPropagates(t *testing.T) {
	backend := cpu.New()
	l := NewGroupThenBatchNorm2D(32, backend)

	l.SetTraining(false)
	assert.False(t, l.Training())
	assert.False(t, l.Group.Training())
	assert.False(t, l.Batch.Training())
}
