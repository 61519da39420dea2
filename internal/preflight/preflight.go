// Package preflight verifies that the host can run a job before any external
// process is started.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Default free-space thresholds.
const (
	DefaultMinFreeOutput  = 800 * humanize.MByte
	DefaultMinFreeScratch = 200 * humanize.MByte
)

// ErrInsufficientSpace is returned when a directory has less free space than required.
var ErrInsufficientSpace = errors.New("preflight: insufficient free disk space")

// Requirement is a minimum amount of free space on the filesystem holding Path.
type Requirement struct {
	Name    string
	Path    string
	MinFree uint64
}

// SpaceError describes which requirement failed.
type SpaceError struct {
	Requirement
	Free uint64
}

func (e *SpaceError) Error() string {
	return fmt.Sprintf("Not enough free space in %s (%s): %s free, need at least %s",
		e.Name, e.Path, humanize.Bytes(e.Free), humanize.Bytes(e.MinFree))
}

func (e *SpaceError) Unwrap() error {
	return ErrInsufficientSpace
}

// DiskChecker measures free space with an injectable probe.
type DiskChecker struct {
	freeSpace func(path string) (uint64, error)
}

// NewDiskChecker creates a DiskChecker using the host filesystem.
func NewDiskChecker() *DiskChecker {
	return &DiskChecker{freeSpace: freeSpace}
}

// NewDiskCheckerForTests creates a DiskChecker with a fake probe.
func NewDiskCheckerForTests(freeSpace func(path string) (uint64, error)) *DiskChecker {
	return &DiskChecker{freeSpace: freeSpace}
}

// Check evaluates the requirements in order and returns the first failure.
func (c *DiskChecker) Check(reqs ...Requirement) error {
	for _, req := range reqs {
		free, err := c.freeSpace(req.Path)
		if err != nil {
			return fmt.Errorf("preflight: measure free space in %s (%s): %w", req.Name, req.Path, err)
		}
		if free < req.MinFree {
			return &SpaceError{Requirement: req, Free: free}
		}
	}
	return nil
}

// resolveStatPath walks up from path until it finds an existing directory,
// so a not-yet-created output directory is measured on its parent filesystem.
func resolveStatPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if info.IsDir() {
				return current, nil
			}
			return filepath.Dir(current), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		current = parent
	}
}
