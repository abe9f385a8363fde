// Package format holds small formatting and filesystem helpers shared
// across commitgate.
package format

import (
	"io/fs"

	gounits "github.com/docker/go-units"
)

// Common file permission constants used throughout the application.
const (
	// DirUserOnly is for directories holding run artifacts (rwx------)
	DirUserOnly fs.FileMode = 0700

	// FileUserReadWrite is for sensitive files like logs and audit
	// records (rw-------)
	FileUserReadWrite fs.FileMode = 0600
)

// ParseHumanSize parses a human-readable size string (e.g., "500Mb", "10MB") into bytes
func ParseHumanSize(size string) (int64, error) {
	return gounits.FromHumanSize(size)
}
