package domain

import "errors"

var (
	// ErrInvalidQuery signals malformed search stage parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFilter signals a malformed categorical or year filter.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrUnknownField signals a filter on a field that is not categorical.
	ErrUnknownField = errors.New("unknown filter field")
	// ErrDatasetUnavailable signals that the base record set could not be loaded.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	// ErrUnsupportedFormat signals a dataset file format that has no loader.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)
