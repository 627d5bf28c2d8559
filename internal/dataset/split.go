package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Image geometry shared by every supported dataset.
const (
	Channels    = 3
	Height      = 32
	Width       = 32
	PlaneSize   = Height * Width
	SampleBytes = Channels * PlaneSize
)

// Split is a decoded dataset split held in memory.
//
// Pixels stores every sample as 3072 bytes in channel-major order
// (R plane, G plane, B plane; each plane row-major).
type Split struct {
	Pixels []uint8
	Labels []int32
}

// Len returns the number of samples.
func (s *Split) Len() int { return len(s.Labels) }

// Sample returns the pixels of sample i.
func (s *Split) Sample(i int) []uint8 {
	return s.Pixels[i*SampleBytes : (i+1)*SampleBytes]
}

// Truncate keeps at most n samples. n <= 0 keeps everything.
func (s *Split) Truncate(n int) {
	if n <= 0 || n >= s.Len() {
		return
	}
	s.Labels = s.Labels[:n]
	s.Pixels = s.Pixels[:n*SampleBytes]
}

func (s *Split) append(other *Split) {
	s.Pixels = append(s.Pixels, other.Pixels...)
	s.Labels = append(s.Labels, other.Labels...)
}

func (s *Split) validate(classes int) error {
	if len(s.Pixels) != s.Len()*SampleBytes {
		return fmt.Errorf("%w: %d pixel bytes for %d labels", ErrMalformed, len(s.Pixels), s.Len())
	}
	for i, label := range s.Labels {
		if label < 0 || int(label) >= classes {
			return fmt.Errorf("%w: sample %d has label %d, want [0, %d)", ErrMalformed, i, label, classes)
		}
	}
	return nil
}

// Stats holds per-channel pixel statistics on the [0, 1] scale.
type Stats struct {
	Mean [Channels]float64
	Std  [Channels]float64
}

// ComputeStats returns the per-channel mean and standard deviation of the
// split's pixels scaled to [0, 1].
func ComputeStats(s *Split) Stats {
	var st Stats
	if s.Len() == 0 {
		return st
	}

	values := make([]float64, s.Len()*PlaneSize)
	for c := 0; c < Channels; c++ {
		for i := 0; i < s.Len(); i++ {
			plane := s.Sample(i)[c*PlaneSize : (c+1)*PlaneSize]
			dst := values[i*PlaneSize : (i+1)*PlaneSize]
			for j, p := range plane {
				dst[j] = float64(p) / 255
			}
		}
		st.Mean[c], st.Std[c] = stat.PopMeanStdDev(values, nil)
	}
	return st
}
