// Package config provides shared configuration types and validation helpers
// for commitgate. This package centralizes common configuration patterns
// across the gate commands.
package config

import "time"

// GateOptions contains the configuration fields shared by the check
// pipeline. Flag registration lives with the commands; defaults live here.
type GateOptions struct {
	// EnforceFormat makes commit message format violations fail the run
	EnforceFormat bool
	// SemanticTimeout bounds the single semantic service call
	SemanticTimeout time.Duration
	// IOTimeout bounds the audit write and the metrics push
	IOTimeout time.Duration
	// MaxDiffSize is the maximum size of a commit diff to judge (in bytes)
	MaxDiffSize int64
	// MaxScanGoRoutines controls the number of concurrent detector threads
	MaxScanGoRoutines int
	// TruffleHog enables the optional TruffleHog detector pass
	TruffleHog bool
	// TruffleHogVerification enables TruffleHog credential verification
	TruffleHogVerification bool
}

// DefaultGateOptions returns sensible default values for gate options.
func DefaultGateOptions() GateOptions {
	return GateOptions{
		EnforceFormat:          true,
		SemanticTimeout:        30 * time.Second,
		IOTimeout:              5 * time.Second,
		MaxDiffSize:            10 * 1000 * 1000, // 10MB
		MaxScanGoRoutines:      4,
		TruffleHog:             false,
		TruffleHogVerification: false,
	}
}
