// internal/engine/errors.go
package engine

import "errors"

// ErrVaultNotFound is returned for operations on an unknown vault id.
var ErrVaultNotFound = errors.New("vault not found")
