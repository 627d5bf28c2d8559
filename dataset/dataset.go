// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads CIFAR-10, CIFAR-100 and SVHN as batches of born tensors.
//
// # Basic Usage
//
//	backend := cpu.New()
//
//	train, test, err := dataset.Build("cifar10", 128, backend,
//	    dataset.WithRoot("data"),
//	    dataset.WithDownload(ctx),
//	)
//	if err != nil {
//	    return err
//	}
//	for batch, ok := train.Next(); ok; batch, ok = train.Next() {
//	    logits := net.Forward(batch.Images)
//	    // ...
//	}
//	train.Reset()
package dataset

import (
	"github.com/born-ml/born/tensor"

	"github.com/born-ml/convnorm/internal/dataset"
)

// Dataset names.
const (
	CIFAR10      = dataset.CIFAR10
	CIFAR100     = dataset.CIFAR100
	SVHN         = dataset.SVHN
	ImageNetMini = dataset.ImageNetMini
)

// Dataset errors.
var (
	ErrUnknownDataset  = dataset.ErrUnknownDataset
	ErrDatasetDisabled = dataset.ErrDatasetDisabled
	ErrNotFound        = dataset.ErrNotFound
	ErrInvalidBatch    = dataset.ErrInvalidBatch
	ErrMalformed       = dataset.ErrMalformed
)

type (
	// Info describes a dataset.
	Info = dataset.Info
	// Split is a decoded split held in memory.
	Split = dataset.Split
	// Stats holds per-channel pixel mean and standard deviation.
	Stats = dataset.Stats
	// Option configures Build and Load.
	Option = dataset.Option
	// Downloader fetches dataset files over HTTP.
	Downloader = dataset.Downloader
	// LoaderConfig controls batch order and normalization.
	LoaderConfig = dataset.LoaderConfig
)

// Loader serves a split as batches.
type Loader[B tensor.Backend] = dataset.Loader[B]

// Batch is a group of samples.
type Batch[B tensor.Backend] = dataset.Batch[B]

// Option constructors.
var (
	WithRoot          = dataset.WithRoot
	WithDownload      = dataset.WithDownload
	WithDownloader    = dataset.WithDownloader
	WithSeed          = dataset.WithSeed
	WithNormalization = dataset.WithNormalization
	WithLimit         = dataset.WithLimit
)

// Names returns the enabled dataset names.
func Names() []string { return dataset.Names() }

// Lookup returns the description of an enabled dataset.
func Lookup(name string) (*Info, error) { return dataset.Lookup(name) }

// NewDownloader returns a downloader for the published dataset URLs.
func NewDownloader() *Downloader { return dataset.NewDownloader() }

// Load reads the train and test splits of a dataset.
func Load(name string, opts ...Option) (train, test *Split, err error) {
	return dataset.Load(name, opts...)
}

// ComputeStats returns the per-channel mean and standard deviation of s.
func ComputeStats(s *Split) Stats { return dataset.ComputeStats(s) }

// Build returns the shuffled training loader and the ordered test loader.
func Build[B tensor.Backend](name string, batchSize int, backend B, opts ...Option) (train, test *Loader[B], err error) {
	return dataset.Build(name, batchSize, backend, opts...)
}

// NewLoader serves split in batches of batchSize.
func NewLoader[B tensor.Backend](split *Split, batchSize int, backend B, config LoaderConfig) *Loader[B] {
	return dataset.NewLoader(split, batchSize, backend, config)
}
