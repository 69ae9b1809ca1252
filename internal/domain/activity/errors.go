package activity

import "errors"

// ErrInvalidInput indicates an entry or filter that cannot be used.
var ErrInvalidInput = errors.New("invalid activity input")
