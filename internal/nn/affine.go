package nn

import (
	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// affine holds the per-channel scale and shift shared by batch and group
// normalization.
type affine[B tensor.Backend] struct {
	Gamma *Parameter[B] // learnable scale [C], initialized to ones
	Beta  *Parameter[B] // learnable shift [C], initialized to zeros
}

func newAffine[B tensor.Backend](channels int, backend B) affine[B] {
	return affine[B]{
		Gamma: bornnn.NewParameter("gamma", tensor.Ones[float32](tensor.Shape{channels}, backend)),
		Beta:  bornnn.NewParameter("beta", tensor.Zeros[float32](tensor.Shape{channels}, backend)),
	}
}

// apply computes gamma * x + beta per channel of an [N, C, H, W] input.
func (a *affine[B]) apply(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return fromChannelRows(a.applyRows(toChannelRows(x)), x.Shape())
}

// applyRows computes gamma * x + beta for x laid out as [C, M].
func (a *affine[B]) applyRows(rows *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	c, m := rows.Shape()[0], rows.Shape()[1]
	gamma := repeatColumn(a.Gamma.Tensor().Reshape(c, 1), m)
	beta := repeatColumn(a.Beta.Tensor().Reshape(c, 1), m)
	return rows.Mul(gamma).Add(beta)
}

func (a *affine[B]) parameters() []*Parameter[B] {
	return []*Parameter[B]{a.Gamma, a.Beta}
}

func (a *affine[B]) stateDict(dst map[string]*tensor.RawTensor) {
	dst["gamma"] = a.Gamma.Tensor().Raw()
	dst["beta"] = a.Beta.Tensor().Raw()
}

func (a *affine[B]) loadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadTensor(a.Gamma.Tensor(), stateDict, "gamma"); err != nil {
		return err
	}
	return loadTensor(a.Beta.Tensor(), stateDict, "beta")
}
