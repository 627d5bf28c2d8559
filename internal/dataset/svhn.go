package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SVHN cropped-digit files.
const (
	svhnTrainFile = "train_32x32.mat"
	svhnTestFile  = "test_32x32.mat"
)

// decodeSVHN converts the X and y arrays of an SVHN cropped-digit MAT-file.
//
// X is uint8 [32, 32, 3, N] in column-major order, so element (h, w, c, n)
// sits at h + 32*w + 1024*c + 3072*n. y is [N, 1] with digit 0 stored as 10.
func decodeSVHN(vars map[string]*matVar) (*Split, error) {
	x, ok := vars["X"]
	if !ok {
		return nil, fmt.Errorf("%w: missing X", ErrMalformed)
	}
	y, ok := vars["y"]
	if !ok {
		return nil, fmt.Errorf("%w: missing y", ErrMalformed)
	}

	if len(x.Dims) != 4 || x.Dims[0] != Height || x.Dims[1] != Width || x.Dims[2] != Channels {
		return nil, fmt.Errorf("%w: X has dimensions %v, want [32 32 3 N]", ErrMalformed, x.Dims)
	}
	n := x.Dims[3]
	if y.Len() != n {
		return nil, fmt.Errorf("%w: %d labels for %d images", ErrMalformed, y.Len(), n)
	}

	pixels, err := x.Uint8s()
	if err != nil {
		return nil, err
	}
	labels, err := y.Float64s()
	if err != nil {
		return nil, err
	}

	split := &Split{
		Pixels: make([]uint8, n*SampleBytes),
		Labels: make([]int32, n),
	}
	for i := 0; i < n; i++ {
		src := pixels[i*SampleBytes : (i+1)*SampleBytes]
		dst := split.Sample(i)
		for c := 0; c < Channels; c++ {
			for h := 0; h < Height; h++ {
				for w := 0; w < Width; w++ {
					dst[c*PlaneSize+h*Width+w] = src[c*PlaneSize+w*Height+h]
				}
			}
		}

		label := int32(math.Round(labels[i]))
		if label == 10 {
			label = 0
		}
		split.Labels[i] = label
	}
	return split, nil
}

func readSVHNFile(path string) (*Split, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	vars, err := readMAT(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	split, err := decodeSVHN(vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return split, nil
}

func loadSVHN(root string) (train, test *Split, err error) {
	train, err = readSVHNFile(filepath.Join(root, svhnTrainFile))
	if err != nil {
		return nil, nil, err
	}
	test, err = readSVHNFile(filepath.Join(root, svhnTestFile))
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
