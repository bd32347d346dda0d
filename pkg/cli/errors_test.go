package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	underlying := errors.New("sampler.memory_interval: must be at least 1000ms")

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with path",
			err:  NewConfigError("meter.yaml", underlying),
			want: "config error in meter.yaml: sampler.memory_interval: must be at least 1000ms",
		},
		{
			name: "without path",
			err:  NewConfigError("", underlying),
			want: "config error: sampler.memory_interval: must be at least 1000ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if !errors.Is(tt.err, underlying) {
				t.Error("errors.Is() should work with ConfigError.Unwrap()")
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("x.yaml", errors.New("bad")), ExitConfigError},
		{"wrapped config", fmt.Errorf("run: %w", NewConfigError("", errors.New("bad"))), ExitConfigError},
		{"command", NewCommandError("report", errors.New("bad")), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
