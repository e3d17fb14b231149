package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/zepup/internal/domain/entities"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "zep")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.Chmod(path, 0o755)) //nolint:gosec // test binary
	return path
}

func TestSmokeTester_Run(t *testing.T) {
	bin := writeScript(t, shellBinary)
	tester := NewSmokeTester(0, nil)

	tests := []struct {
		name     string
		args     []string
		passed   bool
		exitCode int
		stdout   string
	}{
		{"version succeeds", []string{"version"}, true, 0, "zep 1.2.0\n"},
		{"unknown command fails", []string{"frobnicate"}, false, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tester.Run(context.Background(), append([]string{bin}, tt.args...), time.Second*10)
			assert.Equal(t, tt.passed, result.Passed())
			assert.Equal(t, tt.exitCode, result.ExitCode)
			assert.Equal(t, tt.stdout, result.Stdout)
			if !tt.passed {
				err := result.AsError()
				assert.True(t, errors.Is(err, entities.ErrSmokeTestFailed))
				assert.Contains(t, err.Error(), "unknown command frobnicate")
			}
		})
	}
}

func TestSmokeTester_Timeout(t *testing.T) {
	bin := writeScript(t, "#!/bin/sh\nexec sleep 5\n")

	result := NewSmokeTester(0, nil).Run(context.Background(), []string{bin}, 50*time.Millisecond)
	assert.False(t, result.Passed())
	assert.ErrorContains(t, result.Err, "timed out")
}

func TestSmokeTester_Errors(t *testing.T) {
	tester := NewSmokeTester(time.Second, nil)

	result := tester.Run(context.Background(), nil, 0)
	assert.False(t, result.Passed())

	result = tester.Run(context.Background(), []string{"/nonexistent/zep", "version"}, 0)
	assert.False(t, result.Passed())
	assert.Equal(t, -1, result.ExitCode)
	assert.True(t, errors.Is(result.AsError(), entities.ErrSmokeTestFailed))
}
