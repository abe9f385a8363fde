package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		fieldName string
		wantError bool
		errMsg    string
	}{
		{
			name:      "valid https url",
			url:       "https://api.openai.com/v1",
			fieldName: "Semantic URL",
			wantError: false,
		},
		{
			name:      "valid http url",
			url:       "http://localhost:9091",
			fieldName: "Pushgateway URL",
			wantError: false,
		},
		{
			name:      "empty url",
			url:       "",
			fieldName: "Semantic URL",
			wantError: true,
			errMsg:    "cannot be empty",
		},
		{
			name:      "no scheme",
			url:       "pushgateway.internal:9091",
			fieldName: "Pushgateway URL",
			wantError: true,
			errMsg:    "must include a scheme",
		},
		{
			name:      "invalid url",
			url:       "ht!tp://invalid",
			fieldName: "URL",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, tt.fieldName)
			if tt.wantError {
				if err == nil {
					t.Errorf("ValidateURL() expected error but got none")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateURL() error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateURL() unexpected error = %v", err)
				}
			}
		})
	}
}

func TestParseMaxDiffSize(t *testing.T) {
	tests := []struct {
		name      string
		sizeStr   string
		want      int64
		wantError bool
	}{
		{
			name:      "megabytes",
			sizeStr:   "10MB",
			want:      10 * 1000 * 1000, // FromHumanSize uses decimal (1000) not binary (1024)
			wantError: false,
		},
		{
			name:      "gigabytes",
			sizeStr:   "1GB",
			want:      1 * 1000 * 1000 * 1000,
			wantError: false,
		},
		{
			name:      "kilobytes",
			sizeStr:   "100KB",
			want:      100 * 1000,
			wantError: false,
		},
		{
			name:      "invalid format",
			sizeStr:   "invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMaxDiffSize(tt.sizeStr)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseMaxDiffSize() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("ParseMaxDiffSize() unexpected error = %v", err)
				}
				if got != tt.want {
					t.Errorf("ParseMaxDiffSize() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	tests := []struct {
		name      string
		timeout   time.Duration
		wantError bool
	}{
		{
			name:      "default semantic timeout",
			timeout:   30 * time.Second,
			wantError: false,
		},
		{
			name:      "default io timeout",
			timeout:   5 * time.Second,
			wantError: false,
		},
		{
			name:      "ceiling",
			timeout:   10 * time.Minute,
			wantError: false,
		},
		{
			name:      "zero",
			timeout:   0,
			wantError: true,
		},
		{
			name:      "negative",
			timeout:   -1 * time.Second,
			wantError: true,
		},
		{
			name:      "above ceiling",
			timeout:   11 * time.Minute,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimeout(tt.timeout, "timeout")
			if tt.wantError && err == nil {
				t.Errorf("ValidateTimeout() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidateTimeout() unexpected error = %v", err)
			}
		})
	}
}

func TestValidateThreadCount(t *testing.T) {
	tests := []struct {
		name      string
		threads   int
		wantError bool
	}{
		{
			name:      "valid thread count",
			threads:   4,
			wantError: false,
		},
		{
			name:      "max threads",
			threads:   100,
			wantError: false,
		},
		{
			name:      "min threads",
			threads:   1,
			wantError: false,
		},
		{
			name:      "zero threads",
			threads:   0,
			wantError: true,
		},
		{
			name:      "negative threads",
			threads:   -1,
			wantError: true,
		},
		{
			name:      "too many threads",
			threads:   101,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreadCount(tt.threads)
			if tt.wantError && err == nil {
				t.Errorf("ValidateThreadCount() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidateThreadCount() unexpected error = %v", err)
			}
		})
	}
}

func TestDefaultGateOptions(t *testing.T) {
	opts := DefaultGateOptions()

	if !opts.EnforceFormat {
		t.Error("EnforceFormat should default to true")
	}
	if opts.SemanticTimeout != 30*time.Second {
		t.Errorf("SemanticTimeout = %v, want 30s", opts.SemanticTimeout)
	}
	if opts.IOTimeout != 5*time.Second {
		t.Errorf("IOTimeout = %v, want 5s", opts.IOTimeout)
	}
	if opts.TruffleHog {
		t.Error("TruffleHog should default to off")
	}
}
