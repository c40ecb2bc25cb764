package resolve

import (
	"context"
	"fmt"
	"path/filepath"
)

// ExecutionRoot returns the directory the build was started from
type ExecutionRoot struct {
	Dir string
}

// Key returns the execution root cache key
func (e *ExecutionRoot) Key() Key {
	return ExecutionRootKey
}

// Label returns the log label
func (e *ExecutionRoot) Label() string {
	return "Execution-Root"
}

// Resolve returns Dir as an absolute path without checking that it exists
func (e *ExecutionRoot) Resolve(ctx context.Context) (string, error) {
	dir, err := filepath.Abs(e.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of %s: %w", e.Dir, err)
	}
	return dir, nil
}
