// Package homebrew renders release descriptors as Homebrew formulae.
package homebrew

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
)

var formulaTemplate = template.Must(template.New("formula").Funcs(template.FuncMap{
	"quote": rubyQuote,
}).Parse(`class {{.Class}} < Formula
{{- if .Desc}}
  desc {{quote .Desc}}
{{- end}}
{{- if .Homepage}}
  homepage {{quote .Homepage}}
{{- end}}
  license {{quote .License}}
{{range .Blocks}}
  {{.Keyword}} do
    url {{quote .URL}}
    sha256 {{quote .SHA256}}
  end
{{end}}
  def install
    bin.install {{quote .Binary}} => {{quote .Binary}}
  end

  test do
    system "#{bin}/{{.Binary}}"{{range .Args}}, {{quote .}}{{end}}
  end
end
`))

type formulaData struct {
	Class    string
	Desc     string
	Homepage string
	License  string
	Binary   string
	Args     []string
	Blocks   []platformBlock
}

type platformBlock struct {
	Keyword string
	URL     string
	SHA256  string
}

// blockOrder fixes the order of on_<os> blocks in the rendered formula
var blockOrder = []struct{ os, keyword string }{
	{entities.OSMacOS, "on_macos"},
	{entities.OSLinux, "on_linux"},
}

// Render produces the Ruby formula for a descriptor
func Render(d *entities.ReleaseDescriptor) ([]byte, error) {
	// The binary name is interpolated into a Ruby string in the test block
	if !services.IsBinaryName(d.BinaryName()) {
		return nil, fmt.Errorf("%w: %s: invalid binary name %q", entities.ErrInvalidDescriptor, d.Title(), d.BinaryName())
	}

	data := formulaData{
		Class:    ClassName(d.Name),
		Desc:     d.Description,
		Homepage: d.Homepage,
		License:  d.License,
		Binary:   d.BinaryName(),
		Args:     d.SmokeArgs(),
	}

	for _, b := range blockOrder {
		target, ok := d.Target(b.os)
		if !ok {
			continue
		}
		data.Blocks = append(data.Blocks, platformBlock{Keyword: b.keyword, URL: target.URL, SHA256: target.SHA256})
	}
	if len(data.Blocks) == 0 {
		return nil, fmt.Errorf("%w: %s has no macos or linux target", entities.ErrUnsupportedPlatform, d.Title())
	}

	var buf bytes.Buffer
	if err := formulaTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render formula for %s: %w", d.Title(), err)
	}
	return buf.Bytes(), nil
}

// ClassName converts a package name to a Ruby class name, e.g.
// "zep" -> "Zep", "zig-fmt" -> "ZigFmt"
func ClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rubyQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `#{`, `\#{`)
	return `"` + r.Replace(s) + `"`
}
