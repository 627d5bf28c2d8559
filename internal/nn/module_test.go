package nn

import (
	"testing"

	"github.com/born-ml/born/backend/cpu"
	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTraining_WalksSequential(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D(4, backend)
	hybrid := NewParallelGroupBatchNorm2D(32, backend)
	inner := bornnn.NewSequential[Backend](hybrid, bornnn.NewReLU[Backend]())
	outer := bornnn.NewSequential[Backend](NewConv2D(3, 4, 3, 1, 1, false, backend), bn, inner)

	SetTraining[Backend](outer, false)
	assert.False(t, bn.Training())
	assert.False(t, hybrid.Batch.Training())

	SetTraining[Backend](outer, true)
	assert.True(t, bn.Training())
	assert.True(t, hybrid.Group.Training())
}

func TestSequentialStateDict(t *testing.T) {
	backend := cpu.New()
	seq := bornnn.NewSequential[Backend](
		NewConv2D(3, 4, 3, 1, 1, false, backend),
		NewBatchNorm2D(4, backend),
		bornnn.NewReLU[Backend](),
	)

	assert.ElementsMatch(t, []string{
		"0.weight",
		"1.gamma", "1.beta", "1.running_mean", "1.running_var",
	}, keys(seq.StateDict()))
}

func TestStateDictHelpers(t *testing.T) {
	backend := cpu.New()
	raw := tensor.Zeros[float32](tensor.Shape{2}, backend).Raw()

	dst := make(map[string]*tensor.RawTensor)
	MergeStateDict(dst, "layer1.0", map[string]*tensor.RawTensor{"weight": raw})
	require.Contains(t, dst, "layer1.0.weight")

	sub := SubStateDict(dst, "layer1")
	assert.Contains(t, sub, "0.weight")
	assert.Empty(t, SubStateDict(dst, "layer2"))
}
