package repository

import "errors"

// ErrStorageUnavailable marks failures of the backing store itself, as opposed to missing rows.
var ErrStorageUnavailable = errors.New("storage unavailable")
