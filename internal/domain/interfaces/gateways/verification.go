// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
)

// ChecksumVerifier verifies and computes SHA-256 digests of local files
type ChecksumVerifier interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
	CalculateChecksum(filePath string) (string, error)
}

// SignatureVerifier checks detached OpenPGP signatures
type SignatureVerifier interface {
	// VerifySignature downloads the signature from sigURL and checks filePath against it
	VerifySignature(ctx context.Context, filePath, sigURL string) error

	// VerifySignatureFromFile checks filePath against a local signature file
	VerifySignatureFromFile(filePath, sigPath string) error

	// GetKeyringSize returns the number of loaded public keys
	GetKeyringSize() int
}
