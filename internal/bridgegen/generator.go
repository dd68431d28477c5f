// Package bridgegen generates minimal cgo bindings for a vendor C library.
//
// A run reads a whitelist file (see LoadConfig), finds the newest installed
// SDK for the target platform, scans its headers, and emits a Go file that
// declares exactly the whitelisted types and functions plus the types their
// signatures depend on. A YAML manifest describing the run is written next to
// the Go file.
//
// Every failure is reported as an *Error tagged with the stage it came from:
//
//	res, err := bridgegen.Generate(cfg, bridgegen.Options{OutDir: dir, Target: target})
//	if bridgegen.IsStage(err, bridgegen.StageCodegen) {
//		...
//	}
package bridgegen

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Options control a generator run.
type Options struct {
	Logger *zap.Logger
	OutDir string
	Target Target

	// Strict turns a missing installation and a failed link check into
	// errors.
	Strict bool

	NoManifest bool
}

// Result describes a completed run.
type Result struct {
	Discovery    *Discovery
	Closure      *Closure
	LDFlags      []string
	OutputPath   string
	ManifestPath string // empty when no manifest was written

	// LinkErr is set when the library cannot be found for the linker. The
	// binding file is still written.
	LinkErr error
}

// Generate runs discovery, header scanning, closure and emission for cfg.
func Generate(cfg *Config, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("library", cfg.Library.Name), zap.Stringer("target", opts.Target))

	disc, err := Discover(cfg.Discovery, opts.Target, log)
	if err != nil {
		return &Result{Discovery: disc}, err
	}
	if disc.Selected == nil && opts.Strict {
		return &Result{Discovery: disc}, newError(StageDiscovery, KindNotFound,
			"no usable installation for %s (%d candidates)", opts.Target, len(disc.Candidates)).
			withPath(cfg.Discovery.RootGlob)
	}
	res := &Result{Discovery: disc}

	table, err := scanHeaders(cfg, disc.Selected, opts.Target, log)
	if err != nil {
		return res, err
	}

	closure, err := Close(table, cfg.Whitelist)
	if err != nil {
		return res, err
	}
	res.Closure = closure
	warnShadowed(table, closure, log)
	log.Debug("closure resolved",
		zap.Int("declarations", len(closure.Decls)),
		zap.Strings("dependencies", closure.Dependencies))

	res.LDFlags = LDFlags(cfg.Library, disc.Selected)
	res.LinkErr = checkLink(cfg.Library, disc.Selected)

	src, err := Render(cfg, closure, res.LDFlags)
	if err != nil {
		return res, err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, newError(StageCodegen, KindWrite, "cannot create output directory").withPath(outDir).withCause(err)
	}

	res.OutputPath = filepath.Join(outDir, cfg.Output.File)
	if err := writeFileAtomic(res.OutputPath, src); err != nil {
		return res, err
	}
	log.Info("bindings written",
		zap.String("path", res.OutputPath),
		zap.Int("types", len(cfg.Whitelist.Types)),
		zap.Int("functions", len(cfg.Whitelist.Functions)))

	if !opts.NoManifest && cfg.Output.Manifest != "" {
		data, err := newManifest(cfg, opts.Target, res, table.Files).Encode()
		if err != nil {
			return res, err
		}
		path := filepath.Join(outDir, cfg.Output.Manifest)
		if err := writeFileAtomic(path, data); err != nil {
			return res, err
		}
		res.ManifestPath = path
	}

	if res.LinkErr != nil {
		log.Warn("library will not be found at link time", zap.Error(res.LinkErr))
		if opts.Strict {
			return res, res.LinkErr
		}
	}
	return res, nil
}

// scanHeaders reads the configured headers of the selected installation and
// then the whitelist fallback declarations. Header declarations take
// precedence over fallbacks.
func scanHeaders(cfg *Config, sel *Installation, target Target, log *zap.Logger) (*SymbolTable, error) {
	var table *SymbolTable

	if sel != nil {
		hs := NewHeaderScanner([]string{sel.IncludeDir}, cfg.StripMacros, log)
		hs.Macros = target.Macros()
		for _, h := range cfg.Headers {
			if err := hs.ScanFile(filepath.Join(sel.IncludeDir, h)); err != nil {
				return nil, err
			}
		}
		table = hs.Table
		log.Debug("headers scanned", zap.Int("files", len(table.Files)), zap.Int("declarations", table.Len()))
	} else {
		table = NewSymbolTable()
		log.Warn("no installation selected; using whitelist declarations only")
	}

	var src strings.Builder
	for _, name := range cfg.Whitelist.Symbols() {
		if decl, ok := cfg.Whitelist.Fallbacks[name]; ok {
			src.WriteString(decl)
			src.WriteByte('\n')
		}
	}
	if src.Len() == 0 {
		return table, nil
	}

	fb := NewHeaderScanner(nil, cfg.StripMacros, log)
	if err := fb.ScanSource("<whitelist>", src.String()); err != nil {
		return nil, err
	}
	for _, d := range fb.Table.decls {
		fresh := false
		for _, name := range d.Names {
			existing := table.Lookup(name)
			if existing == nil {
				fresh = true
				continue
			}
			if !sameDecl(existing, d) {
				log.Warn("whitelist declaration differs from header; using header",
					zap.String("symbol", name),
					zap.String("header", existing.Text),
					zap.String("header_pos", existing.Pos),
					zap.String("whitelist", d.Text))
			}
		}
		if fresh {
			table.add(d)
		}
	}
	return table, nil
}

// warnShadowed logs every closure declaration that the headers also declare
// differently, in preprocessor branches that could not be decided for the
// target. The first declaration is used.
func warnShadowed(table *SymbolTable, c *Closure, log *zap.Logger) {
	for _, d := range c.Decls {
		for _, name := range d.Names {
			for _, alt := range table.Shadowed(name) {
				if strings.HasPrefix(alt.Pos, "<") || sameDecl(d, alt) {
					continue
				}
				log.Warn("symbol declared differently under undecided preprocessor conditions; using the first",
					zap.String("symbol", name),
					zap.String("used", d.Text),
					zap.String("used_pos", d.Pos),
					zap.String("other", alt.Text),
					zap.String("other_pos", alt.Pos))
			}
		}
	}
}

// sameDecl compares two declarations of a symbol, ignoring parameter names
// and whitespace.
func sameDecl(a, b *Decl) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == DeclFunction {
		if a.Func.Result != b.Func.Result || a.Func.Variadic != b.Func.Variadic ||
			len(a.Func.Params) != len(b.Func.Params) {
			return false
		}
		for i := range a.Func.Params {
			if a.Func.Params[i].Type != b.Func.Params[i].Type {
				return false
			}
		}
		return true
	}
	return strings.Join(strings.Fields(a.Text), "") == strings.Join(strings.Fields(b.Text), "")
}

// checkLink verifies the library can be found under the selected
// installation's library directory.
func checkLink(lib Library, sel *Installation) error {
	if sel == nil || sel.LibDir == "" {
		return newError(StageLink, KindNotFound,
			"no installation library directory; -l%s will not resolve", lib.Name)
	}

	patterns := []string{"lib" + lib.Name + "*.a", lib.Name + "*.lib"}
	if !lib.Static {
		patterns = append(patterns, "lib"+lib.Name+"*.so*", "lib"+lib.Name+"*.dylib")
	}
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(sel.LibDir, p))
		if err != nil {
			return newError(StageLink, KindGlob, "bad library pattern %q", p).withCause(err)
		}
		if len(matches) > 0 {
			return nil
		}
	}
	return newError(StageLink, KindNotFound, "no %s library file in directory", lib.Name).withPath(sel.LibDir)
}
