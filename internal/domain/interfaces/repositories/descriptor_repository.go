// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// DescriptorRepository provides access to a catalog of release descriptors,
// one descriptor per version
type DescriptorRepository interface {
	// GetDescriptor retrieves the descriptor for an exact version
	GetDescriptor(ctx context.Context, version string) (*entities.ReleaseDescriptor, error)

	// ListDescriptors returns all descriptors ordered by ascending version
	ListDescriptors(ctx context.Context) ([]*entities.ReleaseDescriptor, error)

	// LatestDescriptor returns the descriptor with the highest version
	LatestDescriptor(ctx context.Context) (*entities.ReleaseDescriptor, error)
}

// DescriptorWriter persists newly authored descriptors
type DescriptorWriter interface {
	SaveDescriptor(ctx context.Context, descriptor *entities.ReleaseDescriptor) (string, error)
}

// ReceiptStore persists installation receipts
type ReceiptStore interface {
	Save(receipt *entities.InstallReceipt) error
	Load(name string) (*entities.InstallReceipt, error)
	Delete(name string) error
}
