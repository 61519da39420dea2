// Package id provides unique identifier generation for jobs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generate creates a new unique job ID: a random UUID as 32 lowercase hex
// characters without dashes.
// Example: 3f2b6c0d9a8e4f1b8c7d6e5f4a3b2c1d
func Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
