package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeZep = "#!/bin/sh\nif [ \"$1\" = version ]; then echo 'zep 1.3.0'; exit 0; fi\nexit 3\n"

type testEnv struct {
	root   string
	config string
	prefix string
}

// newTestEnv writes a config file that keeps every directory under a temp root
func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		root:   root,
		config: filepath.Join(root, "config.toml"),
		prefix: filepath.Join(root, "prefix"),
	}
	content := `
[install]
prefix = "` + filepath.ToSlash(env.prefix) + `"

[cache]
dir = "` + filepath.ToSlash(filepath.Join(root, "cache")) + `"

[state]
dir = "` + filepath.ToSlash(filepath.Join(root, "state")) + `"
` + extra
	require.NoError(t, os.WriteFile(env.config, []byte(content), 0o644))
	return env
}

// run executes zepup in process and returns stdout followed by the error, the
// way a user would see them
func (e *testEnv) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	out := stdout.String()
	if err != nil {
		t.Logf("zepup %s: %v", strings.Join(args, " "), err)
		out += "error: " + err.Error() + "\n"
	}
	return out, exitCode(err)
}

func TestCLI_Version(t *testing.T) {
	out, code := newTestEnv(t, "").run(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "zepup version dev")
}

func TestCLI_ListEmbeddedCatalog(t *testing.T) {
	out, code := newTestEnv(t, "").run(t, "list")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "embedded catalog")
	assert.Contains(t, out, "1.2.0 (latest)")
	assert.Contains(t, out, "1.1.0")
	assert.Contains(t, out, "https://zep.run/releases/1.1.0/zep_x86_64-macos_1.1.0.tar.xz")
	assert.Less(t, strings.Index(out, "1.2.0"), strings.Index(out, "1.1.0"), "newest first")
}

func TestCLI_Show(t *testing.T) {
	env := newTestEnv(t, "")

	out, code := env.run(t, "show", "1.1.0")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "version: 1.1.0")
	assert.Contains(t, out, "ab5a1e16e8f431316a4cb1c571d26ce4d435d2a29caa766381984e65be992b24")

	out, code = env.run(t, "show")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "4713b33b59e0fe627e6aebe5ab202043da83c32b76fd710262b1c265efd28616")

	_, code = env.run(t, "show", "9.9.9")
	assert.Equal(t, exitFailure, code)
}

func TestCLI_FormulaReproducesPublishedFormula(t *testing.T) {
	want, err := os.ReadFile(filepath.Join("..", "..", "internal", "external-adapters", "homebrew", "testdata", "zep-1.1.0.rb"))
	require.NoError(t, err)

	out, code := newTestEnv(t, "").run(t, "formula", "1.1.0")
	require.Equal(t, exitOK, code)
	assert.Equal(t, string(want), out)
}

func TestCLI_Validate(t *testing.T) {
	env := newTestEnv(t, "")

	out, code := env.run(t, "validate")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "2 releases valid")

	out, code = env.run(t, "validate", "--strict")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "1.2.0: missing platforms: macos")
}

func TestCLI_ValidateFiles(t *testing.T) {
	env := newTestEnv(t, "")
	good := filepath.Join(env.root, "1.1.0.toml")
	require.NoError(t, os.WriteFile(good, []byte(`
name = "zep"
license = "GPLv3"
version = "1.1.0"

[platforms.linux]
url = "https://zep.run/releases/1.1.0/zep_x86_64-linux_1.1.0.tar.xz"
sha256 = "5ad4cf09545abb7ca7d52c61441108c0022459ade91d7d938f5eca012e0ed4c6"
`), 0o644))
	bad := filepath.Join(env.root, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("name: zep\nversion: \"1.0\"\nlicense: MIT\n"), 0o644))

	_, code := env.run(t, "validate", good)
	assert.Equal(t, exitOK, code)

	out, code := env.run(t, "validate", good, bad)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "invalid version")

	_, code = env.run(t, "validate", filepath.Join(env.root, "descriptor.json"))
	assert.Equal(t, exitUsage, code)
}

func TestCLI_Verify(t *testing.T) {
	env := newTestEnv(t, "")
	file := filepath.Join(env.root, "zep_x86_64-linux_1.3.0.tar.xz")
	require.NoError(t, os.WriteFile(file, []byte("archive bytes"), 0o644))
	digest := sha256.Sum256([]byte("archive bytes"))
	sum := hex.EncodeToString(digest[:])

	out, code := env.run(t, "verify", file, "--sha256", strings.ToUpper(sum))
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Checksum verified")

	out, code = env.run(t, "verify", file, "--sha256", strings.Repeat("0", 64))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "FAILED")

	_, code = env.run(t, "verify", file)
	assert.Equal(t, exitUsage, code, "no checksum source")

	require.NoError(t, os.WriteFile(file+".sha256", []byte(sum+"  "+filepath.Base(file)+"\n"), 0o644))
	out, code = env.run(t, "verify", file)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "zep_x86_64-linux_1.3.0.tar.xz.sha256")

	// The published 1.2.0 checksum does not match these bytes
	_, code = env.run(t, "verify", file, "--version", "1.2.0", "--platform", "linux")
	assert.Equal(t, exitFailure, code)
}

func TestCLI_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "too many args", args: []string{"install", "1.1.0", "1.2.0"}},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "unknown flag", args: []string{"list", "--bogus"}},
		{name: "missing required flags", args: []string{"release", "pack"}},
		{name: "bad platform", args: []string{"install", "--platform", " "}},
		{name: "release new without archives", args: []string{"release", "new", "1.3.0", "--dry-run"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := newTestEnv(t, "").run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}

func TestCLI_VersionIgnoresBrokenConfig(t *testing.T) {
	t.Setenv("ZEPUP_DOWNLOAD_MAX_RETRIES", "-1")
	env := newTestEnv(t, "")

	out, code := env.run(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "zepup version dev")

	out, code = env.run(t, "list")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "download.max_retries must not be negative")
}

func TestCLI_KeyringOnlyLoadedForInstall(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.asc")
	env := newTestEnv(t, `
[verify]
keyring = "`+filepath.ToSlash(missing)+`"
`)

	out, code := env.run(t, "status")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "zep is not installed")

	out, code = env.run(t, "uninstall")
	assert.Equal(t, exitFailure, code)
	assert.NotContains(t, out, "keyring")

	out, code = env.run(t, "install", "--platform", "linux")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "failed to load keyring")
}

func TestCLI_StatusWhenNothingInstalled(t *testing.T) {
	out, code := newTestEnv(t, "").run(t, "status")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "zep is not installed")
}

// TestCLI_ReleaseAndInstall packs a release, authors its descriptor, serves the
// archives over HTTP, and installs, tests, and removes the result
func TestCLI_ReleaseAndInstall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("smoke test binary is a shell script")
	}

	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dist, path.Base(r.URL.Path)))
	}))
	defer srv.Close()

	catalogDir := filepath.Join(root, "catalog")
	env := newTestEnv(t, `
[catalog]
dir = "`+filepath.ToSlash(catalogDir)+`"

[release]
url_template = "`+srv.URL+`/{version}/zep_{arch}-{os}_{version}.tar.xz"
`)

	binary := filepath.Join(root, "build", "zep-out")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	require.NoError(t, os.WriteFile(binary, []byte(fakeZep), 0o755))

	// Pack both platforms
	for _, osName := range []string{"linux", "macos"} {
		out, code := env.run(t, "release", "pack", "--binary", binary, "--os", osName, "--version", "1.3.0", "--out", dist)
		require.Equal(t, exitOK, code, out)
		assert.FileExists(t, filepath.Join(dist, "zep_x86_64-"+osName+"_1.3.0.tar.xz.sha256"))
	}

	// Author the descriptor into an empty catalog
	out, code := env.run(t, "release", "new", "1.3.0", "--artifacts", dist)
	require.Equal(t, exitOK, code, out)
	require.FileExists(t, filepath.Join(catalogDir, "1.3.0.yml"))

	_, code = env.run(t, "release", "new", "1.3.0", "--artifacts", dist)
	assert.Equal(t, exitFailure, code, "versions must increase")

	out, code = env.run(t, "show", "1.3.0")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "license: GPLv3", "metadata inherited from the built-in catalog")
	assert.Contains(t, out, srv.URL+"/1.3.0/zep_x86_64-linux_1.3.0.tar.xz")

	// Install, then check status and smoke test
	out, code = env.run(t, "install", "--platform", "linux-x86_64")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "Install successful!")

	installed := filepath.Join(env.prefix, "bin", "zep")
	data, err := os.ReadFile(installed)
	require.NoError(t, err)
	assert.Equal(t, fakeZep, string(data))
	info, err := os.Stat(installed)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	out, code = env.run(t, "status")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "zep 1.3.0")
	assert.Contains(t, out, "up to date")

	out, code = env.run(t, "test")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "zep 1.3.0")
	assert.Contains(t, out, "Smoke test passed")

	out, code = env.run(t, "install", "--platform", "linux-x86_64")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "already installed")

	// Remove it again
	out, code = env.run(t, "uninstall")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Removed zep 1.3.0")
	assert.NoFileExists(t, installed)

	_, code = env.run(t, "uninstall")
	assert.Equal(t, exitFailure, code)
}

func TestCLI_InstallRejectsTamperedArchive(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("smoke test binary is a shell script")
	}

	root := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not the published archive"))
	}))
	defer srv.Close()

	catalogDir := filepath.Join(root, "catalog")
	require.NoError(t, os.MkdirAll(catalogDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "1.2.0.yml"), []byte(`name: zep
license: GPLv3
version: 1.2.0
platforms:
  linux:
    url: `+srv.URL+`/zep_x86_64-linux_1.2.0.tar.xz
    sha256: 4713b33b59e0fe627e6aebe5ab202043da83c32b76fd710262b1c265efd28616
`), 0o644))

	env := newTestEnv(t, "")
	out, code := env.run(t, "--catalog", catalogDir, "install", "--platform", "linux")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "checksum mismatch")
	assert.NoFileExists(t, filepath.Join(env.prefix, "bin", "zep"))

	cached, err := filepath.Glob(filepath.Join(env.root, "cache", "*", "*"))
	require.NoError(t, err)
	assert.Empty(t, cached, "mismatched download is deleted")
}
