package gateways

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// checksumVerifier implements checksum verification using pure Go
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum compares a file's SHA-256 digest against the expected hex
// digest. Hex case is ignored.
func (v *checksumVerifier) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	expected := strings.ToLower(strings.TrimSpace(expectedSum))
	if actualSum != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", entities.ErrChecksumMismatch, filepath.Base(filePath), expected, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA-256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is user-provided for checksum calculation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteSidecar writes "<sha256>  <filename>" next to filePath and returns
// the sidecar path and the digest
func (v *checksumVerifier) WriteSidecar(filePath string) (string, string, error) {
	sum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return "", "", err
	}

	sidecar := filePath + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil { //nolint:gosec // G306: checksums are public
		return "", "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return sidecar, sum, nil
}

// ReadSidecar reads the digest from a sha256sum-format file. When the file
// lists several entries, the one matching filename wins.
func ReadSidecar(sidecarPath, filename string) (string, error) {
	//nolint:gosec // G304: sidecar path is user-provided
	f, err := os.Open(sidecarPath)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var first string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		sum := strings.ToLower(fields[0])
		if first == "" {
			first = sum
		}
		if len(fields) > 1 && strings.TrimPrefix(fields[1], "*") == filename {
			return sum, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}
	if first == "" {
		return "", fmt.Errorf("checksum file %s is empty", sidecarPath)
	}
	return first, nil
}
