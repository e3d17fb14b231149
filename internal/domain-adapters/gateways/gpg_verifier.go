package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/zepup/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external OpenPGP adapter to implement the domain
// SignatureVerifier gateway
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a new signature verifier gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier() *gpgVerifier {
	return &gpgVerifier{
		verifier: gpg.NewVerifier(),
	}
}

// LoadKeyring imports public keys from a file path or http(s) URL
func (g *gpgVerifier) LoadKeyring(ctx context.Context, source string) error {
	if err := g.verifier.LoadKeyring(ctx, source); err != nil {
		return fmt.Errorf("failed to load keyring %s: %w", source, err)
	}
	return nil
}

// VerifySignature verifies a detached signature downloaded from a URL
func (g *gpgVerifier) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if err := g.verifier.VerifySignature(ctx, filePath, sigURL); err != nil {
		return fmt.Errorf("signature check of %s: %w", filePath, err)
	}
	return nil
}

// VerifySignatureFromFile verifies a detached signature from a local file
func (g *gpgVerifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if err := g.verifier.VerifySignatureFromFile(filePath, sigPath); err != nil {
		return fmt.Errorf("signature check of %s: %w", filePath, err)
	}
	return nil
}

// GetKeyringSize returns the number of keys loaded
func (g *gpgVerifier) GetKeyringSize() int {
	return g.verifier.GetKeyringSize()
}
