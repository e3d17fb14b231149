// Package gpg verifies detached OpenPGP signatures of release archives.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/ochairo/zepup/internal/domain/entities"
)

const (
	armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"
	maxSignatureSize       = 10 * 1024
	maxKeyringSize         = 10 * 1024 * 1024
)

// Verifier checks detached signatures against an in-memory keyring
type Verifier struct {
	keyring    openpgp.EntityList
	httpClient *http.Client
}

// NewVerifier creates a new verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LoadKeyring imports keys from an http(s) URL or a local file path
func (v *Verifier) LoadKeyring(ctx context.Context, source string) error {
	if strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "http://") {
		return v.ImportKeysFromURL(ctx, source)
	}
	return v.ImportKeyFromFile(source)
}

// ImportKeysFromURL imports every key of an armored KEYS file
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	body, err := v.get(ctx, keysURL, maxKeyringSize)
	if err != nil {
		return fmt.Errorf("failed to download KEYS file: %w", err)
	}

	keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse KEYS file: %w", err)
	}
	if len(keys) == 0 {
		return errors.New("no keys found in KEYS file")
	}

	v.keyring = append(v.keyring, keys...)
	return nil
}

// ImportKeyFromFile imports armored or binary keys from a file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath comes from configuration
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}

	keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keys, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(keys) == 0 {
		return errors.New("no keys found in file")
	}

	v.keyring = append(v.keyring, keys...)
	return nil
}

// VerifySignature downloads a detached signature and checks filePath against it
func (v *Verifier) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if len(v.keyring) == 0 {
		return errors.New("no OpenPGP keys loaded")
	}

	sig, err := v.get(ctx, sigURL, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to download signature: %w", err)
	}
	return v.check(filePath, sig)
}

// VerifySignatureFromFile checks filePath against a local signature file
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return errors.New("no OpenPGP keys loaded")
	}

	//nolint:gosec // G304: sigPath sits next to the verified artifact
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	return v.check(filePath, sig)
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// ClearKeyring drops all imported keys
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}

func (v *Verifier) check(filePath string, sig []byte) error {
	if len(sig) < 10 {
		return fmt.Errorf("%w: signature too small to be valid", entities.ErrSignatureInvalid)
	}

	//nolint:gosec // G304: filePath is the downloaded artifact
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	if bytes.HasPrefix(sig, []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSignatureInvalid, err)
	}
	return nil
}

func (v *Verifier) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
