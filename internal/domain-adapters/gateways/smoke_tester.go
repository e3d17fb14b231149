package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
)

// SmokeTester runs a binary with its smoke test arguments
type SmokeTester struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewSmokeTester creates a new smoke tester
func NewSmokeTester(defaultTimeout time.Duration, logger interfaces.Logger) *SmokeTester {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SmokeTester{defaultTimeout: defaultTimeout, logger: logger.Named("smoke")}
}

// Run executes argv directly (no shell) and reports the outcome. Success
// means exit status 0 within the timeout.
func (s *SmokeTester) Run(ctx context.Context, argv []string, timeout time.Duration) *entities.SmokeResult {
	result := &entities.SmokeResult{Argv: argv, ExitCode: -1}
	if len(argv) == 0 {
		result.Err = errors.New("empty command")
		return result
	}

	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: running the release binary is the point of the smoke test
	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	// Children that inherit stdout must not hold Run open past the timeout
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running smoke test", interfaces.F("argv", argv))
	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Err = err
		var exitErr *exec.ExitError
		if execCtx.Err() == context.DeadlineExceeded {
			result.Err = fmt.Errorf("timed out after %v", timeout)
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		s.logger.Warn("smoke test failed",
			interfaces.F("exit_code", result.ExitCode),
			interfaces.Err(result.Err))
		return result
	}

	result.ExitCode = 0
	s.logger.Info("smoke test passed", interfaces.F("duration", result.Duration.String()))
	return result
}
