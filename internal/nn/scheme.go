package nn

import (
	"fmt"
	"strings"
)

// Scheme identifies a normalization scheme.
//
// The set is closed: NewNorm accepts exactly the constants below, and
// ParseScheme is the only way to obtain a Scheme from an external string.
type Scheme int

// Supported normalization schemes.
const (
	// SchemeNone inserts an identity pass-through.
	SchemeNone Scheme = iota
	// SchemeBatch inserts batch normalization.
	SchemeBatch
	// SchemeGroup inserts group normalization.
	SchemeGroup
	// SchemeGroupThenBatch applies group normalization, then batch normalization.
	SchemeGroupThenBatch
	// SchemeBatchThenGroup applies batch normalization, then group normalization.
	SchemeBatchThenGroup
	// SchemeParallel averages group and batch normalization of the same input.
	SchemeParallel
)

// schemeNames holds the external identifier of each scheme, indexed by Scheme.
var schemeNames = [...]string{
	SchemeNone:           "none",
	SchemeBatch:          "bn",
	SchemeGroup:          "gn",
	SchemeGroupThenBatch: "gn_plus_sequential_gn_first",
	SchemeBatchThenGroup: "gn_plus_sequential_bn_first",
	SchemeParallel:       "gn_plus_parallel",
}

// Schemes returns every supported scheme in declaration order.
func Schemes() []Scheme {
	return []Scheme{
		SchemeNone,
		SchemeBatch,
		SchemeGroup,
		SchemeGroupThenBatch,
		SchemeBatchThenGroup,
		SchemeParallel,
	}
}

// ParseScheme maps an external identifier to a Scheme.
//
// The empty string and "none" both select SchemeNone, mirroring an absent
// normalization argument. Matching is case-insensitive. Any other value
// returns an error wrapping ErrUnknownScheme.
func ParseScheme(name string) (Scheme, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return SchemeNone, nil
	}
	for s, n := range schemeNames {
		if n == key {
			return Scheme(s), nil
		}
	}
	return SchemeNone, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// Valid reports whether s is one of the declared schemes.
func (s Scheme) Valid() bool {
	return s >= SchemeNone && int(s) < len(schemeNames)
}

// UsesBatch reports whether the scheme contains a batch normalization stage.
func (s Scheme) UsesBatch() bool {
	switch s {
	case SchemeBatch, SchemeGroupThenBatch, SchemeBatchThenGroup, SchemeParallel:
		return true
	default:
		return false
	}
}

// UsesGroup reports whether the scheme contains a group normalization stage.
func (s Scheme) UsesGroup() bool {
	switch s {
	case SchemeGroup, SchemeGroupThenBatch, SchemeBatchThenGroup, SchemeParallel:
		return true
	default:
		return false
	}
}

// String returns the external identifier of the scheme.
func (s Scheme) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}
