package services

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// ParseVersion parses a strict MAJOR.MINOR.PATCH release version. Prerelease
// and build suffixes are rejected: build metadata does not take part in
// ordering, so 1.2.0 and 1.2.0+rebuild would be two files for one version.
func ParseVersion(version string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", version, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, fmt.Errorf("invalid version %q: must be MAJOR.MINOR.PATCH without suffixes", version)
	}
	return v, nil
}

// SortDescriptors orders descriptors by ascending semantic version in place
func SortDescriptors(descriptors []*entities.ReleaseDescriptor) error {
	parsed := make(map[*entities.ReleaseDescriptor]*semver.Version, len(descriptors))
	for _, d := range descriptors {
		v, err := ParseVersion(d.Version)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", entities.ErrInvalidDescriptor, d.Title(), err)
		}
		parsed[d] = v
	}
	sort.SliceStable(descriptors, func(i, j int) bool {
		return parsed[descriptors[i]].LessThan(parsed[descriptors[j]])
	})
	return nil
}

// CheckSuccessor verifies that next may supersede latest. Versions must be
// strictly increasing; an empty latest accepts any valid version.
func CheckSuccessor(latest, next string) error {
	nextV, err := ParseVersion(next)
	if err != nil {
		return err
	}
	if latest == "" {
		return nil
	}
	latestV, err := ParseVersion(latest)
	if err != nil {
		return err
	}
	if !nextV.GreaterThan(latestV) {
		return fmt.Errorf("%w: %s <= %s", entities.ErrVersionNotIncreasing, next, latest)
	}
	return nil
}

// Latest returns the descriptor with the highest version, or nil for an empty list
func Latest(descriptors []*entities.ReleaseDescriptor) (*entities.ReleaseDescriptor, error) {
	if len(descriptors) == 0 {
		return nil, nil
	}
	sorted := append([]*entities.ReleaseDescriptor(nil), descriptors...)
	if err := SortDescriptors(sorted); err != nil {
		return nil, err
	}
	return sorted[len(sorted)-1], nil
}
