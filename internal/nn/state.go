package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/born/tensor"
)

// MergeStateDict copies every entry of src into dst under prefix + "." + key.
func MergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for key, raw := range src {
		dst[prefix+"."+key] = raw
	}
}

// SubStateDict returns the entries of src stored under prefix, with the
// prefix and its separating dot removed.
func SubStateDict(src map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	sub := make(map[string]*tensor.RawTensor)
	p := prefix + "."
	for key, raw := range src {
		if strings.HasPrefix(key, p) {
			sub[key[len(p):]] = raw
		}
	}
	return sub
}

// LoadSubStateDict loads the entries stored under prefix into m.
func LoadSubStateDict[B tensor.Backend](m Module[B], stateDict map[string]*tensor.RawTensor, prefix string) error {
	if err := m.LoadStateDict(SubStateDict(stateDict, prefix)); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// loadTensor copies stateDict[key] into dst after validating shape and dtype.
func loadTensor[B tensor.Backend](dst *tensor.Tensor[float32, B], stateDict map[string]*tensor.RawTensor, key string) error {
	raw, ok := stateDict[key]
	if !ok {
		return fmt.Errorf("missing %s in state dict", key)
	}
	if !raw.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, dst.Shape(), raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", key, raw.DType())
	}
	copy(dst.Data(), raw.AsFloat32())
	return nil
}
