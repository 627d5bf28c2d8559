package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/nn"
)

// Summary describes a built network.
type Summary struct {
	Architecture Architecture
	Scheme       nn.Scheme
	Classes      int

	// Parameters is the number of trainable scalars.
	Parameters int
	// Buffers is the number of non-trainable state scalars (running statistics).
	Buffers int
	// Norms counts normalization layers by concrete type name.
	Norms map[string]int

	StemNorm  string
	ProbeNorm string
}

// Summarize counts the parameters and normalization layers of net.
func Summarize[B tensor.Backend](net Network[B]) Summary {
	s := Summary{
		Architecture: net.Architecture(),
		Scheme:       net.Scheme(),
		Classes:      net.NumClasses(),
		Norms:        make(map[string]int),
		StemNorm:     normName(net.StemNorm()),
		ProbeNorm:    normName(net.ProbeNorm()),
	}

	for _, p := range net.Parameters() {
		s.Parameters += p.Tensor().Shape().NumElements()
	}

	total := 0
	for _, raw := range net.StateDict() {
		total += raw.Shape().NumElements()
	}
	s.Buffers = total - s.Parameters

	for _, norm := range net.Norms() {
		s.Norms[normName(norm)]++
	}
	return s
}

// normName returns the type name of a norm without its type arguments.
func normName(v any) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (norm=%s, classes=%d)\n", s.Architecture, s.Scheme, s.Classes)
	fmt.Fprintf(&b, "  parameters: %d\n", s.Parameters)
	fmt.Fprintf(&b, "  buffers:    %d\n", s.Buffers)
	fmt.Fprintf(&b, "  stem norm:  %s\n", s.StemNorm)
	fmt.Fprintf(&b, "  probe norm: %s\n", s.ProbeNorm)

	names := make([]string, 0, len(s.Norms))
	for name := range s.Norms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-26s x%d\n", name, s.Norms[name])
	}
	return b.String()
}
