package nn

// Defaults shared by every normalization layer.
const (
	DefaultEpsilon  float32 = 1e-5
	DefaultMomentum float32 = 0.1
	DefaultGroups           = 32
)

type normConfig struct {
	epsilon  float32
	momentum float32
	groups   int
}

func defaultNormConfig() normConfig {
	return normConfig{
		epsilon:  DefaultEpsilon,
		momentum: DefaultMomentum,
		groups:   DefaultGroups,
	}
}

func newNormConfig(opts []NormOption) normConfig {
	cfg := defaultNormConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NormOption configures a normalization layer.
type NormOption func(*normConfig)

// WithEpsilon sets the constant added to the variance for numerical stability.
func WithEpsilon(eps float32) NormOption {
	return func(c *normConfig) {
		c.epsilon = eps
	}
}

// WithMomentum sets the running statistics update factor of batch normalization.
//
// running = (1 - momentum) * running + momentum * batch.
func WithMomentum(momentum float32) NormOption {
	return func(c *normConfig) {
		c.momentum = momentum
	}
}

// WithGroups sets the number of channel groups of group normalization.
func WithGroups(groups int) NormOption {
	return func(c *normConfig) {
		c.groups = groups
	}
}
