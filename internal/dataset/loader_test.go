package dataset

import (
	"sort"
	"testing"

	"github.com/born-ml/born/backend/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialSplit(n int) *Split {
	split := &Split{Pixels: make([]uint8, n*SampleBytes), Labels: make([]int32, n)}
	for i := 0; i < n; i++ {
		split.Labels[i] = int32(i)
		s := split.Sample(i)
		for j := range s {
			s[j] = uint8(i)
		}
	}
	return split
}

func drain(t *testing.T, l *Loader[Backend]) (sizes []int, labels []int32) {
	t.Helper()
	for {
		batch, ok := l.Next()
		if !ok {
			return sizes, labels
		}
		sizes = append(sizes, batch.Size)
		assert.Equal(t, []int{batch.Size}, []int(batch.Labels.Shape()))
		labels = append(labels, batch.Labels.Data()...)
	}
}

func TestLoader_Batches(t *testing.T) {
	l := NewLoader(sequentialSplit(5), 2, cpu.New(), LoaderConfig{})
	assert.Equal(t, 3, l.NumBatches())

	sizes, labels := drain(t, l)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, labels)

	_, ok := l.Next()
	assert.False(t, ok)

	l.Reset()
	assert.Equal(t, 1, l.Epoch())
	_, labels = drain(t, l)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, labels)
}

func TestLoader_Shuffle(t *testing.T) {
	cfg := LoaderConfig{Shuffle: true, Seed: 7}
	a := NewLoader(sequentialSplit(64), 10, cpu.New(), cfg)
	b := NewLoader(sequentialSplit(64), 10, cpu.New(), cfg)

	_, first := drain(t, a)
	_, same := drain(t, b)
	assert.Equal(t, first, same, "equal seeds give equal order")

	sorted := append([]int32(nil), first...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, label := range sorted {
		require.Equal(t, int32(i), label)
	}

	a.Reset()
	_, second := drain(t, a)
	assert.NotEqual(t, first, second, "each epoch is reshuffled")
}

func TestLoader_ImagesFollowLabels(t *testing.T) {
	l := NewLoader(sequentialSplit(6), 3, cpu.New(), LoaderConfig{Shuffle: true, Seed: 3})
	for {
		batch, ok := l.Next()
		if !ok {
			break
		}
		images := batch.Images.Data()
		for i, label := range batch.Labels.Data() {
			assert.InDelta(t, float32(label)/255, images[i*SampleBytes], 1e-6)
			assert.InDelta(t, float32(label)/255, images[(i+1)*SampleBytes-1], 1e-6)
		}
	}
}

func TestLoader_Normalization(t *testing.T) {
	split := &Split{Pixels: make([]uint8, SampleBytes), Labels: []int32{0}}
	for i := range split.Pixels {
		split.Pixels[i] = 255
	}
	stats := &Stats{
		Mean: [Channels]float64{0.5, 0, 1},
		Std:  [Channels]float64{0.25, 0.5, 1},
	}

	l := NewLoader(split, 1, cpu.New(), LoaderConfig{Stats: stats})
	batch, ok := l.Next()
	require.True(t, ok)

	images := batch.Images.Data()
	assert.InDelta(t, 2.0, images[0], 1e-5)
	assert.InDelta(t, 2.0, images[PlaneSize], 1e-5)
	assert.InDelta(t, 0.0, images[2*PlaneSize], 1e-5)
}

func TestNewLoader_PanicsOnBadBatch(t *testing.T) {
	assert.Panics(t, func() {
		NewLoader(sequentialSplit(1), 0, cpu.New(), LoaderConfig{})
	})
}

func TestLoader_WorkersAgree(t *testing.T) {
	split := sequentialSplit(40)
	stats := &Stats{Mean: [Channels]float64{0.1, 0.2, 0.3}, Std: [Channels]float64{0.5, 0.6, 0.7}}

	seq := NewLoader(split, 40, cpu.New(), LoaderConfig{Stats: stats, Workers: 1})
	par := NewLoader(split, 40, cpu.New(), LoaderConfig{Stats: stats, Workers: 4})

	a, ok := seq.Next()
	require.True(t, ok)
	b, ok := par.Next()
	require.True(t, ok)
	assert.Equal(t, a.Images.Data(), b.Images.Data())
}

func TestParallelFor(t *testing.T) {
	for _, workers := range []int{0, 1, 3} {
		hits := make([]int32, 500)
		parallelFor(len(hits), workers, func(i int) { hits[i]++ })
		for i, h := range hits {
			require.Equal(t, int32(1), h, "workers=%d index %d", workers, i)
		}
	}
}
