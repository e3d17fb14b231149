// Package receipts persists installation receipts as JSON files.
package receipts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// Store implements repositories.ReceiptStore under <dir>/<name>.json
type Store struct {
	dir string
}

// NewStore creates a receipt store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the receipt, replacing any previous receipt for the same name
func (s *Store) Save(receipt *entities.InstallReceipt) error {
	path, err := s.path(receipt.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create receipts directory: %w", err)
	}

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".receipt-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the receipt for name; ErrNotInstalled when there is none
func (s *Store) Load(name string) (*entities.InstallReceipt, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: path is derived from a validated package name
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", entities.ErrNotInstalled, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}

	var receipt entities.InstallReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("corrupt receipt %s: %w", path, err)
	}
	return &receipt, nil
}

// Delete removes the receipt for name; ErrNotInstalled when there is none
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", entities.ErrNotInstalled, name)
		}
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid package name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}
