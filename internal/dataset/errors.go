package dataset

import "errors"

// Dataset errors.
var (
	ErrUnknownDataset  = errors.New("unknown dataset")
	ErrDatasetDisabled = errors.New("dataset disabled")
	ErrNotFound        = errors.New("dataset files not found")
	ErrInvalidBatch    = errors.New("invalid batch size")
	ErrMalformed       = errors.New("malformed dataset file")
)
