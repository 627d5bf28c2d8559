package nn

import (
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.Backend

func fromSlice(t *testing.T, backend Backend, data []float32, shape ...int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

// channelValues gathers every value of channel c from an NCHW buffer.
func channelValues(data []float32, shape tensor.Shape, c int) []float64 {
	n, channels, hw := shape[0], shape[1], shape[2]*shape[3]
	out := make([]float64, 0, n*hw)
	for i := 0; i < n; i++ {
		base := (i*channels + c) * hw
		for j := 0; j < hw; j++ {
			out = append(out, float64(data[base+j]))
		}
	}
	return out
}

// groupValues gathers the values of sample i, group g from an NCHW buffer.
func groupValues(data []float32, shape tensor.Shape, groups, i, g int) []float64 {
	channels, hw := shape[1], shape[2]*shape[3]
	size := channels / groups * hw
	base := i*channels*hw + g*size
	out := make([]float64, size)
	for j := range out {
		out[j] = float64(data[base+j])
	}
	return out
}
