package bridgegen

import (
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Config is a decoded whitelist file. It fully determines what the generator
// is allowed to emit.
type Config struct {
	Library     Library
	Discovery   DiscoveryConfig
	Headers     []string // relative to the installation include directory
	StripMacros []string
	Output      Output
	Whitelist   Whitelist

	// Source is the file the config was read from, used in diagnostics and
	// in the generated file header.
	Source string
}

// Library describes the vendor library the generated bindings link against.
type Library struct {
	Name         string
	Static       bool
	ExtraLDFlags []string
}

// DiscoveryConfig holds the filesystem patterns used to find installations.
type DiscoveryConfig struct {
	RootGlob   string // absolute glob with a version wildcard segment
	LibGlob    string // glob relative to an installation root
	IncludeDir string // directory relative to an installation root
}

// Output controls where and how the generated file is written.
type Output struct {
	Package  string
	File     string
	Manifest string // empty disables the manifest
	Tags     string // build constraint expression
}

// Whitelist is the exact set of foreign symbols exposed to Go. Order is
// preserved from the config file; names are unique across both sets.
type Whitelist struct {
	Types     []string
	Functions []string

	// Fallbacks maps a symbol to a C declaration used when no scanned header
	// declares it.
	Fallbacks map[string]string
}

// Symbols returns every whitelisted name, types first.
func (w Whitelist) Symbols() []string {
	out := make([]string, 0, len(w.Types)+len(w.Functions))
	out = append(out, w.Types...)
	return append(out, w.Functions...)
}

type hclBridgeFile struct {
	Library     hclLibrary   `hcl:"library,block"`
	Discovery   hclDiscovery `hcl:"discovery,block"`
	Output      *hclOutput   `hcl:"output,block"`
	Headers     []string     `hcl:"headers"`
	StripMacros []string     `hcl:"strip_macros,optional"`
	Types       []hclSymbol  `hcl:"type,block"`
	Functions   []hclSymbol  `hcl:"function,block"`
}

type hclLibrary struct {
	Name         string   `hcl:"name,label"`
	Static       *bool    `hcl:"static,optional"`
	ExtraLDFlags []string `hcl:"extra_ldflags,optional"`
}

type hclDiscovery struct {
	RootGlob   string `hcl:"root_glob"`
	LibGlob    string `hcl:"lib_glob"`
	IncludeDir string `hcl:"include_dir"`
}

type hclOutput struct {
	Package  string  `hcl:"package,optional"`
	File     string  `hcl:"file,optional"`
	Manifest *string `hcl:"manifest,optional"`
	Tags     string  `hcl:"tags,optional"`
}

type hclSymbol struct {
	Name string `hcl:"name,label"`
	Decl string `hcl:"decl,optional"`
}

var (
	cIdentRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	cTagRe     = regexp.MustCompile(`^(struct|union|enum) [A-Za-z_][A-Za-z0-9_]*$`)
	libNameRe  = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)
	ldflagSafe = regexp.MustCompile(`^-[A-Za-z]`)
)

// LoadConfig reads and validates the whitelist file at path. Expressions in
// the file are evaluated against environ (in os.Environ form) and target.
func LoadConfig(path string, target Target, environ []string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(StageConfig, KindUnreadable, "cannot read whitelist file").
			withPath(path).withCause(err)
	}
	return ParseConfig(src, path, target, environ)
}

// ParseConfig decodes whitelist source. filename is used for diagnostics.
func ParseConfig(src []byte, filename string, target Target, environ []string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, newError(StageConfig, KindParse, "failed to parse whitelist file").
			withPath(filename).withCause(diags)
	}

	var raw hclBridgeFile
	diags = gohcl.DecodeBody(file.Body, evalContext(environ, target), &raw)
	if diags.HasErrors() {
		return nil, newError(StageConfig, KindParse, "failed to decode whitelist file").
			withPath(filename).withCause(diags)
	}

	cfg := raw.toConfig()
	cfg.Source = filename
	if err := cfg.validate(); err != nil {
		return nil, err.withPath(filename)
	}
	return cfg, nil
}

// evalContext exposes the process environment and the target platform to
// expressions in the whitelist file.
func evalContext(environ []string, target Target) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !utf8.ValidString(k) || !utf8.ValidString(v) {
			continue
		}
		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":    cty.ObjectVal(env),
			"goos":   cty.StringVal(target.GOOS),
			"goarch": cty.StringVal(target.GOARCH),
		},
		Functions: map[string]function.Function{
			"try":      tryfunc.TryFunc,
			"can":      tryfunc.CanFunc,
			"coalesce": stdlib.CoalesceFunc,
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

func (f *hclBridgeFile) toConfig() *Config {
	cfg := &Config{
		Library: Library{
			Name:         f.Library.Name,
			Static:       f.Library.Static == nil || *f.Library.Static,
			ExtraLDFlags: f.Library.ExtraLDFlags,
		},
		Discovery: DiscoveryConfig{
			RootGlob:   f.Discovery.RootGlob,
			LibGlob:    f.Discovery.LibGlob,
			IncludeDir: f.Discovery.IncludeDir,
		},
		Headers:     f.Headers,
		StripMacros: f.StripMacros,
		Whitelist:   Whitelist{Fallbacks: make(map[string]string)},
	}

	name := f.Library.Name
	cfg.Output = Output{
		Package:  name,
		File:     "zz_generated_" + name + ".go",
		Manifest: "zz_generated_" + name + ".yaml",
		Tags:     name + " && cgo",
	}
	if o := f.Output; o != nil {
		if o.Package != "" {
			cfg.Output.Package = o.Package
		}
		if o.File != "" {
			cfg.Output.File = o.File
		}
		if o.Manifest != nil {
			cfg.Output.Manifest = *o.Manifest
		}
		if o.Tags != "" {
			cfg.Output.Tags = o.Tags
		}
	}

	for _, s := range f.Types {
		cfg.Whitelist.Types = append(cfg.Whitelist.Types, s.Name)
		if s.Decl != "" {
			cfg.Whitelist.Fallbacks[s.Name] = s.Decl
		}
	}
	for _, s := range f.Functions {
		cfg.Whitelist.Functions = append(cfg.Whitelist.Functions, s.Name)
		if s.Decl != "" {
			cfg.Whitelist.Fallbacks[s.Name] = s.Decl
		}
	}
	return cfg
}

func (c *Config) validate() *Error {
	invalid := func(format string, args ...any) *Error {
		return newError(StageConfig, KindInvalid, format, args...)
	}

	if !libNameRe.MatchString(c.Library.Name) {
		return invalid("library name %q is not a valid library name", c.Library.Name)
	}
	for _, flag := range c.Library.ExtraLDFlags {
		if !ldflagSafe.MatchString(flag) {
			return invalid("extra_ldflags entry %q is not a linker flag", flag)
		}
	}

	d := c.Discovery
	if d.RootGlob == "" || d.LibGlob == "" || d.IncludeDir == "" {
		return invalid("discovery needs root_glob, lib_glob and include_dir")
	}
	for _, pattern := range []string{d.RootGlob, d.LibGlob} {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return invalid("bad glob %q", pattern).withCause(err)
		}
	}
	if filepath.IsAbs(d.LibGlob) || filepath.IsAbs(d.IncludeDir) {
		return invalid("lib_glob and include_dir must be relative to the installation root")
	}
	for _, h := range c.Headers {
		if h == "" || filepath.IsAbs(h) {
			return invalid("header %q must be a path relative to include_dir", h)
		}
	}

	if !token.IsIdentifier(c.Output.Package) {
		return invalid("output package %q is not a Go identifier", c.Output.Package)
	}
	if !strings.HasSuffix(c.Output.File, ".go") || filepath.Base(c.Output.File) != c.Output.File {
		return invalid("output file %q must be a .go file name", c.Output.File)
	}
	if m := c.Output.Manifest; m != "" && filepath.Base(m) != m {
		return invalid("manifest %q must be a file name", m)
	}

	w := c.Whitelist
	if len(w.Types)+len(w.Functions) == 0 {
		return invalid("whitelist is empty")
	}
	seen := make(map[string]bool)
	for _, name := range w.Types {
		if !cIdentRe.MatchString(name) && !cTagRe.MatchString(name) {
			return invalid("type %q is not a C type name", name).withSymbol(name)
		}
		if seen[name] {
			return invalid("type %q listed twice", name).withSymbol(name)
		}
		seen[name] = true
	}
	for _, name := range w.Functions {
		if !cIdentRe.MatchString(name) {
			return invalid("function %q is not a C identifier", name).withSymbol(name)
		}
		if seen[name] {
			return invalid("function %q listed twice", name).withSymbol(name)
		}
		seen[name] = true
	}
	return nil
}
