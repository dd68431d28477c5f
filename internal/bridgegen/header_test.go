package bridgegen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanHeaderFollowsIncludes(t *testing.T) {
	table := scanFakeSDK(t)

	require.Len(t, table.Files, 2)
	assert.Equal(t, "cplex.h", filepath.Base(table.Files[0].Path))
	assert.Equal(t, "cpxconst.h", filepath.Base(table.Files[1].Path))
	assert.Len(t, table.Files[0].SHA256, 64)

	env := table.Lookup("CPXENVptr")
	require.NotNil(t, env)
	assert.Equal(t, DeclTypedef, env.Kind)
	assert.Equal(t, "typedef struct cpxenv *CPXENVptr;", env.Text)
	assert.Contains(t, env.Refs, "struct cpxenv")
}

func TestScanHeaderPrototypes(t *testing.T) {
	table := scanFakeSDK(t)

	open := table.Lookup("CPXopenCPLEX")
	require.NotNil(t, open)
	require.Equal(t, DeclFunction, open.Kind)
	assert.Equal(t, "CPXENVptr CPXopenCPLEX (int *status_p);", open.Text)
	assert.Equal(t, CType{Base: "CPXENVptr"}, open.Func.Result)
	assert.Equal(t, []Param{{Name: "status_p", Type: CType{Base: "int", Ptr: 1}}}, open.Func.Params)

	closeFn := table.Lookup("CPXcloseCPLEX")
	require.NotNil(t, closeFn)
	assert.Equal(t, []Param{{Name: "env_p", Type: CType{Base: "CPXENVptr", Ptr: 1}}}, closeFn.Func.Params)

	create := table.Lookup("CPXcreateprob")
	require.NotNil(t, create)
	require.Len(t, create.Func.Params, 3)
	assert.Equal(t, Param{Name: "probname_str", Type: CType{Base: "char", Ptr: 1}}, create.Func.Params[2])

	msg := table.Lookup("CPXmsg")
	require.NotNil(t, msg)
	assert.True(t, msg.Func.Variadic)
	assert.Equal(t, CType{Base: "void"}, msg.Func.Result)

	// Deprecation macro and its argument list are stripped.
	old := table.Lookup("CPXoldroutine")
	require.NotNil(t, old)
	assert.Equal(t, "int CPXoldroutine (CPXENVptr env);", old.Text)

	assert.Nil(t, table.Lookup("cpx_helper"), "inline definitions are not declarations")
}

func TestScanHeaderTypedefForms(t *testing.T) {
	table := scanFakeSDK(t)

	cb := table.Lookup("CPXCALLBACKFUNC")
	require.NotNil(t, cb)
	assert.Equal(t, DeclTypedef, cb.Kind)

	dev := table.Lookup("CPXIODEVICE")
	require.NotNil(t, dev)
	assert.Same(t, dev, table.Lookup("CPXIODEVICEptr"))
	assert.Equal(t, []string{"CPXIODEVICE", "CPXIODEVICEptr"}, dev.Names)

	tag := table.Lookup("struct cpxiodevice")
	require.NotNil(t, tag)
	assert.Equal(t, DeclTag, tag.Kind)
	assert.Less(t, tag.order, dev.order)
}

func TestScanSourceFirstDeclarationWins(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("a.h", "typedef int handle_t;"))
	require.NoError(t, hs.ScanSource("b.h", "typedef long handle_t;"))

	assert.Equal(t, "typedef int handle_t;", hs.Table.Lookup("handle_t").Text)
	assert.Equal(t, 2, hs.Table.Len())

	shadowed := hs.Table.Shadowed("handle_t")
	require.Len(t, shadowed, 1)
	assert.Equal(t, "typedef long handle_t;", shadowed[0].Text)
	assert.Empty(t, hs.Table.Shadowed("other_t"))
}

func TestScanSourceIgnoresVariablesAndForwardDecls(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("x.h", `
struct opaque;
extern int cpx_global;
int (*cpx_hook)(int);
struct point { int x, y; } origin;
extern "C" int cpx_plain(void);
`))

	assert.Nil(t, hs.Table.Lookup("struct opaque"))
	assert.Nil(t, hs.Table.Lookup("cpx_global"))
	assert.Nil(t, hs.Table.Lookup("cpx_hook"))
	assert.Nil(t, hs.Table.Lookup("struct point"))

	plain := hs.Table.Lookup("cpx_plain")
	require.NotNil(t, plain)
	assert.Empty(t, plain.Func.Params)
}

func TestParseCTypeNormalizesScalars(t *testing.T) {
	tests := []struct {
		src  string
		want CType
		name string
	}{
		{"unsigned", CType{Base: "unsigned int"}, ""},
		{"long int n", CType{Base: "long"}, "n"},
		{"unsigned long long int *out", CType{Base: "unsigned long long", Ptr: 1}, "out"},
		{"signed char c", CType{Base: "signed char"}, "c"},
		{"const double x[]", CType{Base: "double", Ptr: 1}, "x"},
		{"struct cpxlp *lp", CType{Base: "struct cpxlp", Ptr: 1}, "lp"},
		{"void (*cb)(int)", CType{FuncPtr: true}, "cb"},
		{"long double v", CType{Base: "long double"}, "v"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := tokenize("t.h", tt.src, nil)
			require.NoError(t, err)

			got, name, err := parseCType(toks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestScanHeaderParseErrors(t *testing.T) {
	tests := map[string]string{
		"unterminated comment": "typedef int a;\n/* never closed",
		"unterminated body":    "typedef struct {\n  int a;\n",
		"unbalanced brace":     "int f(void);\n}\n",
		"missing semicolon":    "int f(void)",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			hs := NewHeaderScanner(nil, nil, nil)
			err := hs.ScanSource("broken.h", src)
			require.Error(t, err)
			assert.ErrorIs(t, err, &Error{Stage: StageCodegen, Kind: KindParse})
		})
	}
}

func TestScanFileMissing(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	err := hs.ScanFile(filepath.Join(t.TempDir(), "nope.h"))
	assert.ErrorIs(t, err, &Error{Stage: StageCodegen, Kind: KindUnreadable})
}

func TestScanSourceRefsExcludeNames(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("refs.h", `
typedef int env;
typedef int handle;
typedef struct cpxenv *CPXENVptr;
typedef struct cpxlp *CPXLPptr;
int CPXcloseCPLEX(CPXENVptr *env);
int CPXfree(CPXENVptr env, CPXLPptr *handle, int count);
typedef int (*CPXcallback)(CPXENVptr env, void *handle);
int CPXsetcb(CPXENVptr env, int (*cb)(CPXLPptr lp, int env), void *handle);
struct cpxnode { CPXLPptr lp; int env, handle[4]; struct cpxnode *next; };
unsigned long CPXsize(unsigned handle);
`))

	tests := map[string][]string{
		"CPXcloseCPLEX":  {"CPXENVptr"},
		"CPXfree":        {"CPXENVptr", "CPXLPptr"},
		"CPXcallback":    {"CPXENVptr"},
		"CPXsetcb":       {"CPXENVptr", "CPXLPptr"},
		"struct cpxnode": {"CPXLPptr"},
		"CPXsize":        nil,
		"CPXENVptr":      {"struct cpxenv"},
	}
	for name, want := range tests {
		d := hs.Table.Lookup(name)
		require.NotNil(t, d, name)
		assert.Equal(t, want, d.Refs, name)
	}
}

func TestScanSourceDirectiveInComment(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("c.h", `/* usage:
#include <ilcplex/cplex.h>
#if 0
*/
typedef struct cpxenv *CPXENVptr;
#define CPXNOTE /* spans
                   lines */ typedef int lost_t;
typedef int CPXINT; /* trailing
#endif */
int CPXversion(void);
`))

	assert.NotNil(t, hs.Table.Lookup("CPXENVptr"))
	assert.NotNil(t, hs.Table.Lookup("CPXINT"))
	assert.NotNil(t, hs.Table.Lookup("CPXversion"))
	assert.Nil(t, hs.Table.Lookup("lost_t"), "text after a directive's comment belongs to the directive")
}

const conditionalHeader = `#ifndef CPXSIZE_H
#define CPXSIZE_H
#ifdef _WIN64
typedef long long CPXSIZE;
#elif defined(__APPLE__) && !defined(__x86_64__)
typedef long CPXSIZE;
#else
typedef int CPXSIZE;
#endif
#if defined(CPX_LEGACY) || 0
typedef int CPXDIM;
#else
typedef long CPXDIM;
#endif
#if 0
typedef int never_t;
#endif
#ifdef __cplusplus
extern "C" {
#endif
int CPXgetsize(CPXSIZE *size);
#ifdef __cplusplus
}
#endif
#endif
`

func TestScanSourceConditionals(t *testing.T) {
	tests := []struct {
		target Target
		size   string
	}{
		{Target{GOOS: "linux", GOARCH: "amd64"}, "typedef int CPXSIZE;"},
		{Target{GOOS: "windows", GOARCH: "amd64"}, "typedef long long CPXSIZE;"},
		{Target{GOOS: "darwin", GOARCH: "arm64"}, "typedef long CPXSIZE;"},
		{Target{GOOS: "darwin", GOARCH: "amd64"}, "typedef int CPXSIZE;"},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			hs := NewHeaderScanner(nil, nil, nil)
			hs.Macros = tt.target.Macros()
			require.NoError(t, hs.ScanSource("size.h", conditionalHeader))

			size := hs.Table.Lookup("CPXSIZE")
			require.NotNil(t, size)
			assert.Equal(t, tt.size, size.Text)
			assert.Empty(t, hs.Table.Shadowed("CPXSIZE"))

			// CPX_LEGACY is not a platform macro; both branches are read.
			assert.Equal(t, "typedef int CPXDIM;", hs.Table.Lookup("CPXDIM").Text)
			require.Len(t, hs.Table.Shadowed("CPXDIM"), 1)

			assert.Nil(t, hs.Table.Lookup("never_t"))
			assert.NotNil(t, hs.Table.Lookup("CPXgetsize"))
		})
	}
}

func TestScanSourceUndecidedConditionals(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("size.h", conditionalHeader))

	assert.Equal(t, "typedef long long CPXSIZE;", hs.Table.Lookup("CPXSIZE").Text)
	assert.Len(t, hs.Table.Shadowed("CPXSIZE"), 2)
	assert.Nil(t, hs.Table.Lookup("never_t"))
	assert.NotNil(t, hs.Table.Lookup("CPXgetsize"))
}

func TestEvalCond(t *testing.T) {
	macros := map[string]bool{"_WIN32": true, "__linux__": false}

	tests := []struct {
		expr string
		want cond
	}{
		{"defined(_WIN32)", condTrue},
		{"defined _WIN32", condTrue},
		{"!defined(__linux__)", condTrue},
		{"defined(__linux__) || defined(_WIN32)", condTrue},
		{"defined(__linux__) && defined(CPX_X)", condFalse},
		{"defined(_WIN32) && defined(CPX_X)", condUnknown},
		{"defined(_WIN32) || defined(CPX_X)", condTrue},
		{"(defined(__linux__))", condFalse},
		{"0", condFalse},
		{"1 /* on */", condTrue},
		{"__linux__", condFalse},
		{"CPX_VERSION", condUnknown},
		{"CPX_VERSION >= 12090000", condUnknown},
		{"defined(_WIN32", condUnknown},
		{"", condUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evalCond(tt.expr, macros), tt.expr)
	}
}

func TestTargetMacros(t *testing.T) {
	linux := Target{GOOS: "linux", GOARCH: "amd64"}.Macros()
	assert.True(t, linux["__linux__"])
	assert.True(t, linux["__x86_64__"])
	assert.False(t, linux["_WIN32"])
	assert.False(t, linux["__aarch64__"])
	assert.Contains(t, linux, "_WIN64")
	assert.Contains(t, linux, "__cplusplus")

	win := Target{GOOS: "windows", GOARCH: "amd64"}.Macros()
	assert.True(t, win["_WIN32"])
	assert.True(t, win["_WIN64"])
	assert.False(t, win["_MSC_VER"])

	mac := Target{GOOS: "darwin", GOARCH: "arm64"}.Macros()
	assert.True(t, mac["__APPLE__"])
	assert.True(t, mac["__aarch64__"])
	assert.True(t, mac["__arm64__"])

	other := Target{GOOS: "plan9", GOARCH: "mips"}.Macros()
	assert.NotContains(t, other, "__linux__")
	assert.NotContains(t, other, "__x86_64__")
	assert.False(t, other["__cplusplus"])
}
