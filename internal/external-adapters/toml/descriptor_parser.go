// Package toml decodes release descriptors written in TOML.
package toml

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/ochairo/zepup/internal/domain/entities"
)

type tomlDescriptor struct {
	Name          string                  `toml:"name"`
	Description   string                  `toml:"description,omitempty"`
	Homepage      string                  `toml:"homepage,omitempty"`
	License       string                  `toml:"license"`
	Version       string                  `toml:"version"`
	Binary        string                  `toml:"binary,omitempty"`
	InstallTarget string                  `toml:"install_target,omitempty"`
	Platforms     map[string]tomlPlatform `toml:"platforms"`
	Test          tomlTest                `toml:"test,omitempty"`
}

type tomlPlatform struct {
	Arch         string `toml:"arch,omitempty"`
	URL          string `toml:"url"`
	SHA256       string `toml:"sha256"`
	SignatureURL string `toml:"signature_url,omitempty"`
}

type tomlTest struct {
	Args []string `toml:"args,omitempty"`
}

// DescriptorParser parses TOML release descriptors
type DescriptorParser struct{}

// NewDescriptorParser creates a new TOML parser
func NewDescriptorParser() *DescriptorParser {
	return &DescriptorParser{}
}

// ParseFile parses a TOML descriptor file
func (p *DescriptorParser) ParseFile(filePath string) (*entities.ReleaseDescriptor, error) {
	//nolint:gosec // G304: filePath is a descriptor path from the catalog
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return p.Parse(data)
}

// Parse parses TOML bytes into a ReleaseDescriptor
func (p *DescriptorParser) Parse(data []byte) (*entities.ReleaseDescriptor, error) {
	var raw tomlDescriptor
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse TOML: %v", entities.ErrInvalidDescriptor, err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("%w: descriptor must have a name", entities.ErrInvalidDescriptor)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("%w: descriptor %s must have a version", entities.ErrInvalidDescriptor, raw.Name)
	}

	platforms := make(map[string]entities.PlatformTarget, len(raw.Platforms))
	for osName, pc := range raw.Platforms {
		platforms[osName] = entities.PlatformTarget{
			OS:           osName,
			Arch:         pc.Arch,
			URL:          pc.URL,
			SHA256:       pc.SHA256,
			SignatureURL: pc.SignatureURL,
		}
	}

	return &entities.ReleaseDescriptor{
		Name:          raw.Name,
		Description:   raw.Description,
		Homepage:      raw.Homepage,
		License:       raw.License,
		Version:       raw.Version,
		Binary:        raw.Binary,
		InstallTarget: raw.InstallTarget,
		Platforms:     platforms,
		Test:          entities.SmokeTest{Args: raw.Test.Args},
	}, nil
}
