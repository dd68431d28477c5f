package bridgegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"
)

var bindingTemplate = template.Must(template.New("binding").Parse(`// Code generated by cplexgen from {{.Config}}; DO NOT EDIT.

//go:build {{.Tags}}

package {{.Package}}

/*
#cgo LDFLAGS: {{.LDFlags}}
#include <stddef.h>
#include <stdint.h>
{{range .Decls}}
{{.}}
{{- end}}
*/
import "C"
{{if .NeedsUnsafe}}
import "unsafe"
{{end}}
{{range .Types}}
type {{.Go}} = {{.C}}
{{end}}
{{range .Funcs}}
func {{.Go}}({{.Params}}){{if .Result}} {{.Result}}{{end}} {
	{{if .Result}}return {{end}}C.{{.C}}({{.Args}})
}
{{end}}
`))

type bindingData struct {
	Config      string
	Tags        string
	Package     string
	LDFlags     string
	Decls       []string
	NeedsUnsafe bool
	Types       []typeAlias
	Funcs       []funcShim
}

type typeAlias struct {
	Go, C string
}

type funcShim struct {
	Go, C  string
	Params string
	Result string
	Args   string
}

// scalarTypes maps normalized C builtin types to their cgo names.
var scalarTypes = map[string]string{
	"char":               "C.char",
	"signed char":        "C.schar",
	"unsigned char":      "C.uchar",
	"short":              "C.short",
	"unsigned short":     "C.ushort",
	"int":                "C.int",
	"unsigned int":       "C.uint",
	"long":               "C.long",
	"unsigned long":      "C.ulong",
	"long long":          "C.longlong",
	"unsigned long long": "C.ulonglong",
	"float":              "C.float",
	"double":             "C.double",
}

// Render produces the formatted Go source of the binding file.
func Render(cfg *Config, c *Closure, ldflags []string) ([]byte, error) {
	data := bindingData{
		Config:  filepath.Base(cfg.Source),
		Tags:    cfg.Output.Tags,
		Package: cfg.Output.Package,
		LDFlags: joinLDFlags(ldflags),
	}

	for _, d := range c.Decls {
		data.Decls = append(data.Decls, d.Text)
	}

	for _, name := range cfg.Whitelist.Types {
		data.Types = append(data.Types, typeAlias{Go: "raw" + goTypeSuffix(name), C: cgoTypeName(name)})
	}

	for _, d := range c.Functions() {
		shim, unsafeUsed, err := buildShim(d.Func)
		if err != nil {
			return nil, newError(StageCodegen, KindUnsupported, "%v", err).
				withSymbol(d.Func.Name).withPath(d.Pos)
		}
		data.NeedsUnsafe = data.NeedsUnsafe || unsafeUsed
		data.Funcs = append(data.Funcs, shim)
	}

	var buf bytes.Buffer
	if err := bindingTemplate.Execute(&buf, data); err != nil {
		return nil, newError(StageCodegen, KindWrite, "cannot render bindings").withCause(err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, newError(StageCodegen, KindInvalid, "rendered bindings are not valid Go").withCause(err)
	}
	return src, nil
}

func buildShim(sig *FuncSig) (funcShim, bool, error) {
	if sig.Variadic {
		return funcShim{}, false, fmt.Errorf("variadic functions cannot be called from cgo")
	}

	var (
		params     []string
		args       []string
		unsafeUsed bool
		used       = make(map[string]bool)
	)
	for i, p := range sig.Params {
		typ, err := goType(p.Type)
		if err != nil {
			return funcShim{}, false, fmt.Errorf("parameter %d: %w", i, err)
		}
		unsafeUsed = unsafeUsed || strings.Contains(typ, "unsafe.")

		name := goParamName(p.Name, i)
		for used[name] {
			name += "_"
		}
		used[name] = true

		params = append(params, name+" "+typ)
		args = append(args, name)
	}

	var result string
	if sig.Result.Base != "void" || sig.Result.Ptr > 0 || sig.Result.FuncPtr {
		typ, err := goType(sig.Result)
		if err != nil {
			return funcShim{}, false, fmt.Errorf("result: %w", err)
		}
		unsafeUsed = unsafeUsed || strings.Contains(typ, "unsafe.")
		result = typ
	}

	return funcShim{
		Go:     "raw" + sig.Name,
		C:      sig.Name,
		Params: strings.Join(params, ", "),
		Result: result,
		Args:   strings.Join(args, ", "),
	}, unsafeUsed, nil
}

// goType maps a C type to the Go type cgo exposes for it.
func goType(t CType) (string, error) {
	if t.FuncPtr {
		return "*[0]byte", nil
	}

	var base string
	ptr := t.Ptr
	switch {
	case t.Base == "void":
		if ptr == 0 {
			return "", fmt.Errorf("void is not a value type")
		}
		base = "unsafe.Pointer"
		ptr--
	case t.Base == "long double" || t.Base == "unsigned long double":
		return "", fmt.Errorf("long double has no cgo equivalent")
	case t.Base == "_Bool" || t.Base == "unsigned _Bool":
		return "", fmt.Errorf("_Bool is not supported")
	case scalarTypes[t.Base] != "":
		base = scalarTypes[t.Base]
	default:
		base = cgoTypeName(t.Base)
	}
	return strings.Repeat("*", ptr) + base, nil
}

// cgoTypeName returns the cgo spelling of a typedef name or tag.
func cgoTypeName(name string) string {
	if kw, tag, ok := strings.Cut(name, " "); ok {
		return "C." + kw + "_" + tag
	}
	return "C." + name
}

// goTypeSuffix turns "CPXENVptr" into itself and "struct cpxenv" into
// "Struct_cpxenv".
func goTypeSuffix(name string) string {
	kw, tag, ok := strings.Cut(name, " ")
	if !ok {
		return name
	}
	r := []rune(kw)
	r[0] = unicode.ToUpper(r[0])
	return string(r) + "_" + tag
}

func goParamName(name string, i int) string {
	switch {
	case name == "":
		return fmt.Sprintf("p%d", i)
	case token.IsKeyword(name), name == "C", name == "unsafe":
		return name + "_"
	default:
		return name
	}
}

// LDFlags returns the linker arguments for the library: the selected
// installation's library directory when there is one, the library itself,
// then any extra flags.
func LDFlags(lib Library, inst *Installation) []string {
	var flags []string
	if inst != nil && inst.LibDir != "" {
		flags = append(flags, "-L"+filepath.ToSlash(inst.LibDir))
	}
	flags = append(flags, "-l"+lib.Name)
	return append(flags, lib.ExtraLDFlags...)
}

// joinLDFlags renders flags for a #cgo directive, quoting arguments that
// contain whitespace.
func joinLDFlags(flags []string) string {
	out := make([]string, len(flags))
	for i, f := range flags {
		if strings.ContainsAny(f, " \t'\"") {
			f = `"` + strings.ReplaceAll(f, `"`, `\"`) + `"`
		}
		out[i] = f
	}
	return strings.Join(out, " ")
}

// writeFileAtomic replaces path with data via a temporary file in the same
// directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return newError(StageCodegen, KindWrite, "cannot create temporary file").withPath(dir).withCause(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return newError(StageCodegen, KindWrite, "cannot write output").withPath(path).withCause(err)
	}
	if err := tmp.Close(); err != nil {
		return newError(StageCodegen, KindWrite, "cannot write output").withPath(path).withCause(err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return newError(StageCodegen, KindWrite, "cannot set output mode").withPath(path).withCause(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return newError(StageCodegen, KindWrite, "cannot replace output").withPath(path).withCause(err)
	}
	return nil
}
