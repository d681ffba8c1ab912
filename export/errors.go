package export

import "errors"

// Sentinel errors for bundle operations.
var (
	ErrBuildFailed   = errors.New("export: build failed")
	ErrInvalidBundle = errors.New("export: invalid bundle")
)
