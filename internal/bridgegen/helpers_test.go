package bridgegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var linuxAMD64 = Target{GOOS: "linux", GOARCH: "amd64"}

const fakeConstHeader = `#ifndef CPXCONST_H
#define CPXCONST_H 1

#define CPX_VERSION 22010100
#define CPXPUBLIC
#define CPXLIBAPI
#define CPXDEPRECATEDAPI(v) \
	__attribute__((deprecated))

typedef int CPXINT;
typedef struct cpxenv *CPXENVptr;
typedef struct cpxenv const *CPXCENVptr;
typedef struct cpxlp *CPXLPptr;
typedef struct cpxlp const *CPXCLPptr;
typedef struct cpxchannel *CPXCHANNELptr;

typedef int (CPXPUBLIC CPXCALLBACKFUNC) (CPXCENVptr, void *, int, void *);

/* I/O device used by the file routines */
struct cpxiodevice {
	int (CPXPUBLIC *cpxiodev_eof)(struct cpxiodevice *);
	void *data;
};
typedef struct cpxiodevice CPXIODEVICE, *CPXIODEVICEptr;

#endif
`

const fakeCplexHeader = `#ifndef CPX_CPLEX_H
#define CPX_CPLEX_H 1

#include <stdio.h>
#include "cpxconst.h"

#ifdef __cplusplus
extern "C" {
#endif

/* Environment */
CPXLIBAPI CPXENVptr CPXPUBLIC CPXopenCPLEX (int *status_p);
CPXLIBAPI int CPXPUBLIC CPXcloseCPLEX (CPXENVptr *env_p);

/* Problems */
CPXLIBAPI CPXLPptr CPXPUBLIC
	CPXcreateprob (CPXCENVptr env, int *status_p,
	               char const *probname_str);
CPXLIBAPI int CPXPUBLIC CPXgetnumcols (CPXCENVptr env, CPXCLPptr lp);
CPXLIBAPI void CPXPUBLIC CPXmsg (CPXCHANNELptr channel, char const *format, ...);
CPXDEPRECATEDAPI(12090000)
CPXLIBAPI int CPXPUBLIC CPXoldroutine (CPXENVptr env);
CPXLIBAPI int CPXPUBLIC CPXsetiodevice (CPXIODEVICEptr dev);

static inline int cpx_helper (int x) { return x + 1; }

#ifdef __cplusplus
}
#endif

#endif
`

const testConfigSrc = `
library "cplex" {
  static        = true
  extra_ldflags = ["-lm", "-lpthread"]
}

discovery {
  root_glob   = "${env.CPLEX_FAKE_ROOT}/*/cplex"
  lib_glob    = "lib/*/static_pic"
  include_dir = "include/ilcplex"
}

headers      = ["cplex.h"]
strip_macros = ["CPXPUBLIC", "CPXLIBAPI", "CPXDEPRECATEDAPI"]

output {
  package = "cplex"
}

type "CPXENVptr" {
  decl = "typedef struct cpxenv *CPXENVptr;"
}

function "CPXopenCPLEX" {
  decl = "CPXENVptr CPXopenCPLEX(int *status_p);"
}

function "CPXcloseCPLEX" {
  decl = "int CPXcloseCPLEX(CPXENVptr *env_p);"
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// installSDK lays out a fake installation named dir under base with headers
// and a static library for x86-64_linux. It returns the installation root.
func installSDK(t *testing.T, base, dir string) string {
	t.Helper()
	root := filepath.Join(base, dir, "cplex")
	writeFile(t, filepath.Join(root, "include", "ilcplex", "cplex.h"), fakeCplexHeader)
	writeFile(t, filepath.Join(root, "include", "ilcplex", "cpxconst.h"), fakeConstHeader)
	writeFile(t, filepath.Join(root, "lib", "x86-64_linux", "static_pic", "libcplex.a"), "!<arch>\n")
	return root
}

// loadTestConfig parses src with CPLEX_FAKE_ROOT pointing at base.
func loadTestConfig(t *testing.T, src, base string) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(src), "bridge.hcl", linuxAMD64,
		[]string{"CPLEX_FAKE_ROOT=" + filepath.ToSlash(base)})
	require.NoError(t, err)
	return cfg
}

func scanFakeSDK(t *testing.T) *SymbolTable {
	t.Helper()
	root := installSDK(t, t.TempDir(), "CPLEX_Studio2211")
	inc := filepath.Join(root, "include", "ilcplex")

	hs := NewHeaderScanner([]string{inc}, []string{"CPXPUBLIC", "CPXLIBAPI", "CPXDEPRECATEDAPI"}, nil)
	require.NoError(t, hs.ScanFile(filepath.Join(inc, "cplex.h")))
	return hs.Table
}
