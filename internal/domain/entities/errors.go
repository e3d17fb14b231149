package entities

import "errors"

// Sentinel errors shared across layers. Wrap with %w, match with errors.Is.
var (
	ErrDescriptorNotFound   = errors.New("release descriptor not found")
	ErrInvalidDescriptor    = errors.New("invalid release descriptor")
	ErrDuplicateVersion     = errors.New("duplicate release version")
	ErrVersionNotIncreasing = errors.New("release version is not greater than the latest release")
	ErrUnsupportedPlatform  = errors.New("platform not supported by release")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrBinaryNotFound       = errors.New("binary not found in archive")
	ErrSmokeTestFailed      = errors.New("smoke test failed")
	ErrNotInstalled         = errors.New("not installed")
)
