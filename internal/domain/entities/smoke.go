package entities

import (
	"fmt"
	"strings"
	"time"
)

// SmokeResult contains the outcome of running a binary's smoke test
type SmokeResult struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// Passed reports whether the binary exited with status 0
func (r *SmokeResult) Passed() bool {
	return r.Err == nil && r.ExitCode == 0
}

// AsError converts a failed result into an ErrSmokeTestFailed error
func (r *SmokeResult) AsError() error {
	if r.Passed() {
		return nil
	}
	detail := strings.TrimSpace(r.Stderr)
	if detail == "" && r.Err != nil {
		detail = r.Err.Error()
	}
	return fmt.Errorf("%w: %s exited %d: %s", ErrSmokeTestFailed, strings.Join(r.Argv, " "), r.ExitCode, detail)
}
