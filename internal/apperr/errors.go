package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrNoTagging       = errors.New("no tagging configured")
)
