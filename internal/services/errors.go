package services

import "errors"

// ErrInvalidPolicy is returned for malformed policy resources or actions
var ErrInvalidPolicy = errors.New("invalid policy rule")
