package bridgegen

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest records what a generator run linked against and emitted. It holds
// no timestamps so identical inputs produce identical files.
type Manifest struct {
	Config       string                `yaml:"config"`
	Library      string                `yaml:"library"`
	Static       bool                  `yaml:"static"`
	Target       string                `yaml:"target"`
	Platform     string                `yaml:"platform,omitempty"`
	Installation *ManifestInstallation `yaml:"installation,omitempty"`
	LDFlags      []string              `yaml:"ldflags"`
	Headers      []HeaderFile          `yaml:"headers,omitempty"`
	Types        []string              `yaml:"types"`
	Functions    []string              `yaml:"functions"`
	Dependencies []string              `yaml:"dependencies,omitempty"`
	LinkError    string                `yaml:"link_error,omitempty"`
}

// ManifestInstallation describes the selected installation.
type ManifestInstallation struct {
	Root       string `yaml:"root"`
	Version    string `yaml:"version,omitempty"`
	IncludeDir string `yaml:"include_dir"`
	LibDir     string `yaml:"lib_dir"`
}

func newManifest(cfg *Config, target Target, res *Result, headers []HeaderFile) *Manifest {
	m := &Manifest{
		Config:       filepath.Base(cfg.Source),
		Library:      cfg.Library.Name,
		Static:       cfg.Library.Static,
		Target:       target.String(),
		Platform:     target.Platform(),
		LDFlags:      res.LDFlags,
		Headers:      headers,
		Types:        cfg.Whitelist.Types,
		Functions:    cfg.Whitelist.Functions,
		Dependencies: res.Closure.Dependencies,
	}
	if sel := res.Discovery.Selected; sel != nil {
		m.Installation = &ManifestInstallation{
			Root:       sel.Root,
			Version:    sel.Version,
			IncludeDir: sel.IncludeDir,
			LibDir:     sel.LibDir,
		}
	}
	if res.LinkErr != nil {
		m.LinkError = res.LinkErr.Error()
	}
	return m
}

// Encode renders the manifest as YAML with a generated-file header.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Code generated by cplexgen from " + m.Config + "; DO NOT EDIT.\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, newError(StageCodegen, KindWrite, "cannot encode manifest").withCause(err)
	}
	if err := enc.Close(); err != nil {
		return nil, newError(StageCodegen, KindWrite, "cannot encode manifest").withCause(err)
	}
	return buf.Bytes(), nil
}

// ReadManifest loads a manifest written by a previous run.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(StageCodegen, KindUnreadable, "cannot read manifest").withPath(path).withCause(err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, newError(StageCodegen, KindParse, "cannot decode manifest").withPath(path).withCause(err)
	}
	return &m, nil
}
