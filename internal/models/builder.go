package models

import (
	"fmt"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// Build constructs arch for classes outputs, inserting scheme at every
// normalization point. No partial network is returned on error.
//
// Errors wrap ErrUnknownArchitecture, ErrInvalidClassCount or
// nn.ErrUnknownScheme.
func Build[B tensor.Backend](arch Architecture, classes int, scheme nn.Scheme, backend B) (Network[B], error) {
	if !arch.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArchitecture, arch)
	}
	if classes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClassCount, classes)
	}
	if !scheme.Valid() {
		return nil, fmt.Errorf("%w: %s", nn.ErrUnknownScheme, scheme)
	}

	if arch == VGG16 {
		net, err := NewVGG16(classes, scheme, backend)
		if err != nil {
			return nil, err
		}
		return net, nil
	}

	net, err := NewResNet(arch, classes, scheme, backend)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// BuildByName resolves the architecture name and the normalization
// identifier, then calls Build. An empty norm selects no normalization.
func BuildByName[B tensor.Backend](name string, classes int, norm string, backend B) (Network[B], error) {
	arch, err := ParseArchitecture(name)
	if err != nil {
		return nil, err
	}
	scheme, err := nn.ParseScheme(norm)
	if err != nil {
		return nil, err
	}
	return Build(arch, classes, scheme, backend)
}
