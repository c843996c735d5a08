// Package storage holds the errors and path rules shared by the artifact
// blob stores in its subpackages.
package storage

import (
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidPath is returned for empty or escaping object names.
	ErrInvalidPath = errors.New("storage: invalid object path")
)

// CleanPath normalizes an object name to a relative slash-separated path.
// Empty names and names with a ".." segment are rejected.
func CleanPath(name string) (string, error) {
	slashed := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
