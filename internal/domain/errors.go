package domain

import "errors"

var (
	ErrNoData       = errors.New("no data provided")
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
)

// поиск не уложился в общий дедлайн с учётом ретраев
var ErrSearchTimeout = errors.New("search timed out")
