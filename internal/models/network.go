// Package models assembles the convolutional architectures (VGG16 and the
// ResNet family) around a pluggable normalization scheme.
//
// Every network is built by Build or BuildByName and exposes two named
// normalization layers, StemNorm and ProbeNorm, so callers can confirm which
// scheme was wired in without relying on layer indices.
package models

import (
	"fmt"
	"strings"

	bornnn "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// Architecture identifies a network topology.
type Architecture int

// Supported architectures.
const (
	VGG16 Architecture = iota
	ResNet18
	ResNet34
	ResNet50
	ResNet101
	ResNet152
)

var architectureNames = [...]string{
	VGG16:     "VGG16",
	ResNet18:  "ResNet18",
	ResNet34:  "ResNet34",
	ResNet50:  "ResNet50",
	ResNet101: "ResNet101",
	ResNet152: "ResNet152",
}

// Architectures returns every supported architecture.
func Architectures() []Architecture {
	return []Architecture{VGG16, ResNet18, ResNet34, ResNet50, ResNet101, ResNet152}
}

// ParseArchitecture maps a name such as "ResNet50" to its Architecture.
// Matching ignores case.
func ParseArchitecture(name string) (Architecture, error) {
	key := strings.TrimSpace(name)
	for a, n := range architectureNames {
		if strings.EqualFold(n, key) {
			return Architecture(a), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownArchitecture, name)
}

// Valid reports whether a is a declared architecture.
func (a Architecture) Valid() bool {
	return a >= VGG16 && int(a) < len(architectureNames)
}

func (a Architecture) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Architecture(%d)", int(a))
	}
	return architectureNames[a]
}

// Network is a classifier mapping [N, 3, H, W] images to [N, classes] logits.
type Network[B tensor.Backend] interface {
	nn.Module[B]
	nn.Trainer

	Architecture() Architecture
	NumClasses() int
	Scheme() nn.Scheme

	// StemNorm returns the normalization applied right after the first convolution.
	StemNorm() nn.Norm[B]

	// ProbeNorm returns the last normalization layer of the feature extractor.
	// ResNet: the final norm of the last block of stage 4.
	// VGG16: the norm after the thirteenth convolution.
	ProbeNorm() nn.Norm[B]

	// Norms returns every normalization layer in forward order.
	Norms() []nn.Norm[B]
}

// checkInput panics unless x is [N, 3, H, W].
func checkInput[B tensor.Backend](name string, x *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,3,H,W], got shape %v", name, shape))
	}
	if shape[1] != 3 {
		panic(fmt.Sprintf("%s: expected 3 input channels, got %d", name, shape[1]))
	}
}

func relu[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return bornnn.ReLUFunc(x)
}
