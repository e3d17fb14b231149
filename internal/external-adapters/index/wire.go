// Package index serves a release catalog over HTTP as JSON.
package index

import (
	"github.com/ochairo/zepup/internal/domain/entities"
)

// ReleaseDocument is the JSON form of a release descriptor
type ReleaseDocument struct {
	Name          string                      `json:"name"`
	Description   string                      `json:"description,omitempty"`
	Homepage      string                      `json:"homepage,omitempty"`
	License       string                      `json:"license"`
	Version       string                      `json:"version"`
	Binary        string                      `json:"binary"`
	InstallTarget string                      `json:"install_target"`
	Platforms     map[string]PlatformDocument `json:"platforms"`
	Test          TestDocument                `json:"test"`
}

// PlatformDocument is the JSON form of a platform target
type PlatformDocument struct {
	Arch         string `json:"arch"`
	URL          string `json:"url"`
	SHA256       string `json:"sha256"`
	SignatureURL string `json:"signature_url,omitempty"`
}

// TestDocument carries the smoke test arguments
type TestDocument struct {
	Args []string `json:"args"`
}

// ReleaseList is the response of GET /v1/releases
type ReleaseList struct {
	Name     string            `json:"name"`
	Latest   string            `json:"latest"`
	Releases []ReleaseDocument `json:"releases"`
}

// ErrorDocument is returned with every non-2xx JSON response
type ErrorDocument struct {
	Error string `json:"error"`
}

// ToDocument converts a descriptor into its wire form with defaults resolved
func ToDocument(d *entities.ReleaseDescriptor) ReleaseDocument {
	doc := ReleaseDocument{
		Name:          d.Name,
		Description:   d.Description,
		Homepage:      d.Homepage,
		License:       d.License,
		Version:       d.Version,
		Binary:        d.BinaryName(),
		InstallTarget: d.Destination(),
		Platforms:     make(map[string]PlatformDocument, len(d.Platforms)),
		Test:          TestDocument{Args: d.SmokeArgs()},
	}
	for _, key := range d.PlatformKeys() {
		t, _ := d.Target(key)
		doc.Platforms[key] = PlatformDocument{
			Arch:         t.Arch,
			URL:          t.URL,
			SHA256:       t.SHA256,
			SignatureURL: t.SignatureURL,
		}
	}
	return doc
}

// ToEntity converts a wire document back into a descriptor
func (doc ReleaseDocument) ToEntity() *entities.ReleaseDescriptor {
	d := &entities.ReleaseDescriptor{
		Name:          doc.Name,
		Description:   doc.Description,
		Homepage:      doc.Homepage,
		License:       doc.License,
		Version:       doc.Version,
		Binary:        doc.Binary,
		InstallTarget: doc.InstallTarget,
		Platforms:     make(map[string]entities.PlatformTarget, len(doc.Platforms)),
		Test:          entities.SmokeTest{Args: doc.Test.Args},
	}
	for key, p := range doc.Platforms {
		d.Platforms[key] = entities.PlatformTarget{
			OS:           key,
			Arch:         p.Arch,
			URL:          p.URL,
			SHA256:       p.SHA256,
			SignatureURL: p.SignatureURL,
		}
	}
	return d
}
