package bridgegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declNames(c *Closure) []string {
	var names []string
	for _, d := range c.Decls {
		names = append(names, d.Names...)
	}
	return names
}

func TestCloseIsMinimal(t *testing.T) {
	table := scanFakeSDK(t)

	c, err := Close(table, Whitelist{
		Types:     []string{"CPXENVptr"},
		Functions: []string{"CPXopenCPLEX", "CPXcloseCPLEX"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CPXENVptr", "CPXopenCPLEX", "CPXcloseCPLEX"}, declNames(c))
	assert.Empty(t, c.Dependencies)
	for _, unrelated := range []string{"CPXLPptr", "CPXcreateprob", "CPXCENVptr", "CPXINT", "CPXmsg"} {
		assert.NotContains(t, declNames(c), unrelated)
	}
}

func TestCloseAddsSignatureTypes(t *testing.T) {
	table := scanFakeSDK(t)

	c, err := Close(table, Whitelist{Functions: []string{"CPXgetnumcols"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"CPXCENVptr", "CPXCLPptr"}, c.Dependencies)
	assert.Equal(t, []string{"CPXCENVptr", "CPXCLPptr", "CPXgetnumcols"}, declNames(c))
	assert.NotContains(t, declNames(c), "CPXLPptr")
}

func TestCloseIsTransitive(t *testing.T) {
	table := scanFakeSDK(t)

	c, err := Close(table, Whitelist{Functions: []string{"CPXsetiodevice"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"CPXIODEVICE", "CPXIODEVICEptr", "struct cpxiodevice"}, c.Dependencies)
	assert.Equal(t,
		[]string{"struct cpxiodevice", "CPXIODEVICE", "CPXIODEVICEptr", "CPXsetiodevice"},
		declNames(c))
}

func TestCloseErrors(t *testing.T) {
	table := scanFakeSDK(t)

	tests := []struct {
		name   string
		w      Whitelist
		kind   Kind
		symbol string
	}{
		{"missing function", Whitelist{Functions: []string{"CPXnope"}}, KindMissing, "CPXnope"},
		{"missing type", Whitelist{Types: []string{"CPXNOPEptr"}}, KindMissing, "CPXNOPEptr"},
		{"function listed as type", Whitelist{Types: []string{"CPXopenCPLEX"}}, KindMismatch, "CPXopenCPLEX"},
		{"type listed as function", Whitelist{Functions: []string{"CPXENVptr"}}, KindMismatch, "CPXENVptr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Close(table, tt.w)
			require.Error(t, err)
			assert.ErrorIs(t, err, &Error{Stage: StageCodegen, Kind: tt.kind})

			var gerr *Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.symbol, gerr.Symbol)
		})
	}
}

func TestCloseIgnoresParameterNames(t *testing.T) {
	hs := NewHeaderScanner(nil, nil, nil)
	require.NoError(t, hs.ScanSource("names.h", `
typedef int env;
typedef int lp;
typedef struct cpxenv *CPXENVptr;
typedef struct cpxlp *CPXLPptr;
typedef int (*CPXcallback)(CPXENVptr env, void *lp);
int CPXcloseCPLEX(CPXENVptr *env);
int CPXsetcb(CPXENVptr env, CPXcallback cb, int (*hook)(CPXLPptr lp));
`))

	c, err := Close(hs.Table, Whitelist{Functions: []string{"CPXcloseCPLEX"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"CPXENVptr"}, c.Dependencies)
	assert.Equal(t, []string{"CPXENVptr", "CPXcloseCPLEX"}, declNames(c))

	c, err = Close(hs.Table, Whitelist{Functions: []string{"CPXsetcb"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"CPXENVptr", "CPXLPptr", "CPXcallback"}, c.Dependencies)
	assert.NotContains(t, declNames(c), "env")
	assert.NotContains(t, declNames(c), "lp")
}
