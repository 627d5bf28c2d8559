// Package dataset reads the CIFAR-10, CIFAR-100 and SVHN image datasets from
// their published on-disk formats and serves them as batches of born tensors.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/born-ml/born/tensor"
)

// Dataset names accepted by Build.
const (
	CIFAR10      = "cifar10"
	CIFAR100     = "cifar100"
	SVHN         = "svhn"
	ImageNetMini = "imagenet-mini"
)

// Info describes a dataset.
type Info struct {
	Name    string
	Classes int
	// Normalization applied when WithNormalization is enabled.
	Stats Stats

	// load reads the train and test splits from root.
	load func(root string) (train, test *Split, err error)
	// sources are fetched by the downloader.
	sources []source
}

var registry = map[string]*Info{
	CIFAR10: {
		Name:    CIFAR10,
		Classes: 10,
		Stats: Stats{
			Mean: [Channels]float64{0.4914, 0.4822, 0.4465},
			Std:  [Channels]float64{0.2470, 0.2435, 0.2616},
		},
		load:    loadCIFAR10,
		sources: cifar10Sources,
	},
	CIFAR100: {
		Name:    CIFAR100,
		Classes: 100,
		Stats: Stats{
			Mean: [Channels]float64{0.5071, 0.4865, 0.4409},
			Std:  [Channels]float64{0.2673, 0.2564, 0.2762},
		},
		load:    loadCIFAR100,
		sources: cifar100Sources,
	},
	SVHN: {
		Name:    SVHN,
		Classes: 10,
		Stats: Stats{
			Mean: [Channels]float64{0.4377, 0.4438, 0.4728},
			Std:  [Channels]float64{0.1980, 0.2010, 0.1970},
		},
		load:    loadSVHN,
		sources: svhnSources,
	},
}

// Names returns the names of the enabled datasets.
func Names() []string {
	return []string{CIFAR10, CIFAR100, SVHN}
}

// Lookup returns the description of an enabled dataset.
func Lookup(name string) (*Info, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == ImageNetMini {
		return nil, fmt.Errorf("%w: %s", ErrDatasetDisabled, key)
	}
	info, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return info, nil
}

// DefaultRoot is the data directory used when WithRoot is not given.
const DefaultRoot = "data"

type config struct {
	root       string
	download   bool
	ctx        context.Context
	downloader *Downloader
	seed       int64
	normalize  bool
	limit      int
}

// Option configures Build and Load.
type Option func(*config)

// WithRoot sets the directory holding the dataset files.
func WithRoot(dir string) Option {
	return func(c *config) { c.root = dir }
}

// WithDownload fetches missing files before reading them.
func WithDownload(ctx context.Context) Option {
	return func(c *config) {
		c.download = true
		c.ctx = ctx
	}
}

// WithDownloader replaces the downloader used by WithDownload.
func WithDownloader(d *Downloader) Option {
	return func(c *config) { c.downloader = d }
}

// WithSeed sets the seed of the training loader's shuffle.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithNormalization toggles per-channel mean/std normalization (default on).
// When off, pixels are only scaled to [0, 1].
func WithNormalization(enabled bool) Option {
	return func(c *config) { c.normalize = enabled }
}

// WithLimit keeps at most n samples of each split.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

func newConfig(opts []Option) config {
	cfg := config{
		root:      DefaultRoot,
		ctx:       context.Background(),
		seed:      1,
		normalize: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.downloader == nil {
		cfg.downloader = NewDownloader()
	}
	return cfg
}

// Load reads the train and test splits of a dataset.
func Load(name string, opts ...Option) (train, test *Split, err error) {
	info, err := Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	cfg := newConfig(opts)
	return info.read(cfg)
}

func (info *Info) read(cfg config) (train, test *Split, err error) {
	if cfg.download {
		if err := cfg.downloader.Fetch(cfg.ctx, info.Name, cfg.root); err != nil {
			return nil, nil, err
		}
	}

	train, test, err = info.load(cfg.root)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	for split, s := range map[string]*Split{"train": train, "test": test} {
		if err := s.validate(info.Classes); err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", info.Name, split, err)
		}
	}

	train.Truncate(cfg.limit)
	test.Truncate(cfg.limit)
	return train, test, nil
}

// Build returns the training loader (shuffled every epoch) and the test
// loader (fixed order) of a dataset, both serving batchSize samples per batch.
//
// Errors wrap ErrUnknownDataset, ErrDatasetDisabled, ErrInvalidBatch,
// ErrNotFound or ErrMalformed.
func Build[B tensor.Backend](name string, batchSize int, backend B, opts ...Option) (train, test *Loader[B], err error) {
	if batchSize <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidBatch, batchSize)
	}
	info, err := Lookup(name)
	if err != nil {
		return nil, nil, err
	}

	cfg := newConfig(opts)
	trainSplit, testSplit, err := info.read(cfg)
	if err != nil {
		return nil, nil, err
	}

	var norm *Stats
	if cfg.normalize {
		norm = &info.Stats
	}
	train = NewLoader(trainSplit, batchSize, backend, LoaderConfig{Shuffle: true, Seed: cfg.seed, Stats: norm})
	test = NewLoader(testSplit, batchSize, backend, LoaderConfig{Stats: norm})
	return train, test, nil
}
