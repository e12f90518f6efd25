package types

import "errors"

var (
	// ErrUnsupportedMethod is returned for verbs outside GET/POST/PUT/PATCH/DELETE.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")

	// ErrMalformedTemplate is returned when a path template cannot be parsed.
	ErrMalformedTemplate = errors.New("malformed path template")

	// ErrMissingParam is returned when a placeholder has no substitution value.
	ErrMissingParam = errors.New("missing path parameter")
)
