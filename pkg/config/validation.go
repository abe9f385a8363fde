package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/format"
)

// ValidateURL validates that a string is a valid URL.
func ValidateURL(urlStr string, fieldName string) error {
	if urlStr == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", fieldName, err)
	}

	// "host:port" parses as scheme:opaque, not as a host and port
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must include a scheme (http/https)", fieldName)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}

	return nil
}

// ParseMaxDiffSize parses a human-readable size string (e.g., "10MB", "1GB")
// into bytes.
func ParseMaxDiffSize(sizeStr string) (int64, error) {
	size, err := format.ParseHumanSize(sizeStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse max diff size: %w", err)
	}
	return size, nil
}

// ValidateTimeout validates that a timeout is positive and below the hard
// ceiling. A gate that waits longer than ten minutes has stalled the CI job.
func ValidateTimeout(timeout time.Duration, fieldName string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", fieldName, timeout)
	}
	if timeout > 10*time.Minute {
		return fmt.Errorf("%s too high (max 10m), got %s", fieldName, timeout)
	}
	return nil
}

// ValidateThreadCount validates that the thread count is within acceptable bounds.
func ValidateThreadCount(threads int) error {
	if threads < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", threads)
	}
	if threads > 100 {
		return fmt.Errorf("thread count too high (max 100), got %d", threads)
	}
	return nil
}
