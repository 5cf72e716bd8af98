package store

import "errors"

// ErrInvalidTenant is returned when a tenant id is empty or contains no
// allowed characters after sanitization.
var ErrInvalidTenant = errors.New("invalid tenant id")
