package dataset

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/born/tensor"
)

// LoaderConfig controls batch order and pixel normalization.
type LoaderConfig struct {
	// Shuffle reorders the samples at the start of every epoch.
	Shuffle bool
	Seed    int64
	// Stats, when non-nil, normalizes each channel as (x - mean) / std after
	// scaling pixels to [0, 1].
	Stats *Stats
	// Workers bounds the goroutines decoding a batch. Zero uses one per CPU;
	// 1 decodes sequentially.
	Workers int
}

// Batch is a group of consecutive samples.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B] // [Size, 3, 32, 32]
	Labels *tensor.Tensor[int32, B]   // [Size]
	Size   int
}

// Loader serves a split as batches of tensors on a backend.
//
// One pass of Next over the split is an epoch; the final batch of an epoch
// holds the remaining samples and may be smaller than the batch size.
type Loader[B tensor.Backend] struct {
	split     *Split
	batchSize int
	backend   B
	config    LoaderConfig

	rng   *rand.Rand
	order []int
	pos   int
	epoch int
}

// NewLoader returns a loader positioned at the start of the first epoch.
// It panics if batchSize is not positive.
func NewLoader[B tensor.Backend](split *Split, batchSize int, backend B, config LoaderConfig) *Loader[B] {
	if batchSize <= 0 {
		panic(fmt.Sprintf("dataset: %v: %d", ErrInvalidBatch, batchSize))
	}

	l := &Loader[B]{
		split:     split,
		batchSize: batchSize,
		backend:   backend,
		config:    config,
		//nolint:gosec // shuffling does not need a cryptographic source
		rng:   rand.New(rand.NewSource(config.Seed)),
		order: make([]int, split.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.shuffle()
	return l
}

// Len returns the number of samples in the split.
func (l *Loader[B]) Len() int { return l.split.Len() }

// BatchSize returns the configured batch size.
func (l *Loader[B]) BatchSize() int { return l.batchSize }

// NumBatches returns the number of batches per epoch.
func (l *Loader[B]) NumBatches() int {
	return (l.split.Len() + l.batchSize - 1) / l.batchSize
}

// Epoch returns the number of completed Reset calls.
func (l *Loader[B]) Epoch() int { return l.epoch }

// Reset starts a new epoch, reshuffling when configured.
func (l *Loader[B]) Reset() {
	l.pos = 0
	l.epoch++
	l.shuffle()
}

func (l *Loader[B]) shuffle() {
	if !l.config.Shuffle {
		return
	}
	l.rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Next returns the next batch of the epoch, or false when the epoch is done.
func (l *Loader[B]) Next() (*Batch[B], bool) {
	if l.pos >= len(l.order) {
		return nil, false
	}
	end := min(l.pos+l.batchSize, len(l.order))
	indices := l.order[l.pos:end]
	l.pos = end

	n := len(indices)
	images := make([]float32, n*SampleBytes)
	labels := make([]int32, n)
	parallelFor(n*Channels, l.config.Workers, func(k int) {
		b, c := k/Channels, k%Channels
		off := b*SampleBytes + c*PlaneSize
		l.decodePlane(images[off:off+PlaneSize], l.split.Sample(indices[b])[c*PlaneSize:], c)
	})
	for b, idx := range indices {
		labels[b] = l.split.Labels[idx]
	}

	x, err := tensor.FromSlice(images, tensor.Shape{n, Channels, Height, Width}, l.backend)
	if err != nil {
		panic(err)
	}
	y, err := tensor.FromSlice(labels, tensor.Shape{n}, l.backend)
	if err != nil {
		panic(err)
	}
	return &Batch[B]{Images: x, Labels: y, Size: n}, true
}

// decodePlane scales channel c of one sample to [0, 1] and applies the
// channel normalization.
func (l *Loader[B]) decodePlane(dst []float32, src []uint8, c int) {
	scale, shift := float32(1)/255, float32(0)
	if st := l.config.Stats; st != nil {
		std := float32(st.Std[c])
		scale /= std
		shift = -float32(st.Mean[c]) / std
	}
	for i := range dst {
		dst[i] = float32(src[i])*scale + shift
	}
}
