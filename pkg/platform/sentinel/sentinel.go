package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Clients and stores return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrUnavailable: a dependency could not be reached or gave no usable answer
//   - ErrMalformed: a dependency answered with data that could not be decoded
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrMalformed   = errors.New("malformed")
)
