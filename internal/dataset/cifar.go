package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Directory names inside the published CIFAR archives.
const (
	cifar10Dir  = "cifar-10-batches-bin"
	cifar100Dir = "cifar-100-binary"
)

// cifarFormat describes a CIFAR binary record: labelBytes label bytes, the
// one at labelIndex used as the class, then SampleBytes pixel bytes.
type cifarFormat struct {
	labelBytes int
	labelIndex int
}

var (
	cifar10Format  = cifarFormat{labelBytes: 1, labelIndex: 0}
	cifar100Format = cifarFormat{labelBytes: 2, labelIndex: 1} // coarse, fine
)

func (f cifarFormat) recordSize() int { return f.labelBytes + SampleBytes }

// readCIFAR decodes every record of a CIFAR binary file.
func readCIFAR(r io.Reader, format cifarFormat) (*Split, error) {
	split := &Split{}
	record := make([]byte, format.recordSize())
	br := bufio.NewReader(r)

	for {
		_, err := io.ReadFull(br, record)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated record %d", ErrMalformed, split.Len())
		}
		if err != nil {
			return nil, err
		}
		split.Labels = append(split.Labels, int32(record[format.labelIndex]))
		split.Pixels = append(split.Pixels, record[format.labelBytes:]...)
	}
	return split, nil
}

func readCIFARFile(path string, format cifarFormat) (*Split, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	split, err := readCIFAR(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return split, nil
}

// loadCIFAR10 reads data_batch_1..5 as the training split and test_batch as
// the test split.
func loadCIFAR10(root string) (train, test *Split, err error) {
	dir := filepath.Join(root, cifar10Dir)

	train = &Split{}
	for i := 1; i <= 5; i++ {
		batch, err := readCIFARFile(filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", i)), cifar10Format)
		if err != nil {
			return nil, nil, err
		}
		train.append(batch)
	}

	test, err = readCIFARFile(filepath.Join(dir, "test_batch.bin"), cifar10Format)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// loadCIFAR100 reads train.bin and test.bin, labelling samples with the fine class.
func loadCIFAR100(root string) (train, test *Split, err error) {
	dir := filepath.Join(root, cifar100Dir)

	train, err = readCIFARFile(filepath.Join(dir, "train.bin"), cifar100Format)
	if err != nil {
		return nil, nil, err
	}
	test, err = readCIFARFile(filepath.Join(dir, "test.bin"), cifar100Format)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
