// Package yaml provides YAML encoding and decoding of release descriptors.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// yamlDescriptor represents the raw YAML structure of one release file
type yamlDescriptor struct {
	Name          string                  `yaml:"name"`
	Description   string                  `yaml:"description,omitempty"`
	Homepage      string                  `yaml:"homepage,omitempty"`
	License       string                  `yaml:"license"`
	Version       string                  `yaml:"version"`
	Binary        string                  `yaml:"binary,omitempty"`
	InstallTarget string                  `yaml:"install_target,omitempty"`
	Platforms     map[string]yamlPlatform `yaml:"platforms"`
	Test          *yamlTest               `yaml:"test,omitempty"`
}

type yamlPlatform struct {
	Arch         string `yaml:"arch,omitempty"`
	URL          string `yaml:"url"`
	SHA256       string `yaml:"sha256"`
	SignatureURL string `yaml:"signature_url,omitempty"`
}

type yamlTest struct {
	Args []string `yaml:"args,flow"`
}

// DescriptorParser parses and renders YAML release descriptors
type DescriptorParser struct{}

// NewDescriptorParser creates a new YAML parser
func NewDescriptorParser() *DescriptorParser {
	return &DescriptorParser{}
}

// ParseFile parses a YAML descriptor file
func (p *DescriptorParser) ParseFile(filePath string) (*entities.ReleaseDescriptor, error) {
	//nolint:gosec // G304: filePath is a descriptor path from the catalog
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a ReleaseDescriptor. Unknown keys are rejected
// so that a misspelt field never silently drops a checksum.
func (p *DescriptorParser) Parse(data []byte) (*entities.ReleaseDescriptor, error) {
	var raw yamlDescriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", entities.ErrInvalidDescriptor)
		}
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", entities.ErrInvalidDescriptor, err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("%w: descriptor must have a name", entities.ErrInvalidDescriptor)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("%w: descriptor %s must have a version", entities.ErrInvalidDescriptor, raw.Name)
	}

	return toEntity(raw), nil
}

// Marshal renders a descriptor as YAML in the catalog file layout
func (p *DescriptorParser) Marshal(d *entities.ReleaseDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fromEntity(d)); err != nil {
		return nil, fmt.Errorf("failed to encode descriptor %s: %w", d.Title(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toEntity(raw yamlDescriptor) *entities.ReleaseDescriptor {
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

	d := &entities.ReleaseDescriptor{
		Name:          raw.Name,
		Description:   raw.Description,
		Homepage:      raw.Homepage,
		License:       raw.License,
		Version:       raw.Version,
		Binary:        raw.Binary,
		InstallTarget: raw.InstallTarget,
		Platforms:     platforms,
	}
	if raw.Test != nil {
		d.Test.Args = raw.Test.Args
	}
	return d
}

func fromEntity(d *entities.ReleaseDescriptor) yamlDescriptor {
	platforms := make(map[string]yamlPlatform, len(d.Platforms))
	for _, key := range d.PlatformKeys() {
		t, _ := d.Target(key)
		platforms[key] = yamlPlatform{
			Arch:         t.Arch,
			URL:          t.URL,
			SHA256:       t.SHA256,
			SignatureURL: t.SignatureURL,
		}
	}

	raw := yamlDescriptor{
		Name:          d.Name,
		Description:   d.Description,
		Homepage:      d.Homepage,
		License:       d.License,
		Version:       d.Version,
		Binary:        d.Binary,
		InstallTarget: d.InstallTarget,
		Platforms:     platforms,
	}
	if len(d.Test.Args) > 0 {
		raw.Test = &yamlTest{Args: d.Test.Args}
	}
	return raw
}
