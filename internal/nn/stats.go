package nn

import (
	"fmt"

	"github.com/born-ml/born/tensor"
)

// square returns t*t.
//
// The CPU backend reuses the left operand's buffer for same-shape binary ops
// when it holds the only reference, which would overwrite t with its square.
// Pinning the buffer for the duration of the call keeps t intact.
func square[B tensor.Backend](t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	release := t.Raw().ForceNonUnique()
	defer release()
	return t.Mul(t)
}

// repeatColumn tiles a [R, 1] column across k columns, giving [R, k].
//
// Broadcasting elementwise ops in born v0.7.7 reduce their gradient to the
// wrong elements; a product with a row of ones sums it per row.
func repeatColumn[B tensor.Backend](col *tensor.Tensor[float32, B], k int) *tensor.Tensor[float32, B] {
	return col.MatMul(tensor.Ones[float32](tensor.Shape{1, k}, col.Backend()))
}

// meanOver averages t over dims, keeping every reduced dimension with size 1.
func meanOver[B tensor.Backend](t *tensor.Tensor[float32, B], dims ...int) *tensor.Tensor[float32, B] {
	for _, d := range dims {
		t = t.MeanDim(d, true)
	}
	return t
}

// standardizeRows returns (x - mean) / sqrt(variance + eps) for each row of a
// 2D x, along with the biased row mean and variance, both [R, 1].
func standardizeRows[B tensor.Backend](
	x *tensor.Tensor[float32, B],
	eps float32,
) (normalized, mean, variance *tensor.Tensor[float32, B]) {
	k := x.Shape()[1]

	mean = x.MeanDim(1, true)
	release := x.Raw().ForceNonUnique()
	centered := x.Sub(repeatColumn(mean, k))
	release()

	variance = square(centered).MeanDim(1, true)
	normalized = centered.Mul(repeatColumn(variance.AddScalar(eps).Rsqrt(), k))
	return normalized, mean, variance
}

// toChannelRows lays out [N, C, H, W] as [C, N*H*W], one row per channel.
func toChannelRows[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	return x.Transpose(1, 0, 2, 3).Reshape(shape[1], shape[0]*shape[2]*shape[3])
}

// fromChannelRows inverts toChannelRows for an image of the given shape.
func fromChannelRows[B tensor.Backend](rows *tensor.Tensor[float32, B], shape tensor.Shape) *tensor.Tensor[float32, B] {
	return rows.Reshape(shape[1], shape[0], shape[2], shape[3]).Transpose(1, 0, 2, 3)
}

// checkImage panics unless x is [N, channels, H, W].
func checkImage[B tensor.Backend](layer string, x *tensor.Tensor[float32, B], channels int) {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,C,H,W], got %dD", layer, len(shape)))
	}
	if channels > 0 && shape[1] != channels {
		panic(fmt.Sprintf("%s: input channels %d != expected %d", layer, shape[1], channels))
	}
}
