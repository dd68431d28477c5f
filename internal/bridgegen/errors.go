package bridgegen

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the part of a generator run an error came from.
type Stage string

const (
	StageConfig    Stage = "config"    // whitelist file parse and validation
	StageDiscovery Stage = "discovery" // SDK installation lookup
	StageCodegen   Stage = "codegen"   // header scanning and emission
	StageLink      Stage = "link"      // library search path checks
)

// Kind categorizes the error within its stage.
type Kind string

const (
	KindParse       Kind = "parse"
	KindInvalid     Kind = "invalid"
	KindNotFound    Kind = "not_found"
	KindAmbiguous   Kind = "ambiguous"
	KindGlob        Kind = "glob"
	KindUnreadable  Kind = "unreadable"
	KindMissing     Kind = "missing_symbol"
	KindMismatch    Kind = "kind_mismatch"
	KindUnsupported Kind = "unsupported"
	KindWrite       Kind = "write"
)

// Error is the structured error returned by every generator stage.
type Error struct {
	Stage  Stage
	Kind   Kind
	Path   string // file or directory involved, if any
	Symbol string // whitelisted symbol involved, if any
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Stage))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
	}
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same stage and kind.
// An empty Kind on the target matches any kind within the stage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Stage != e.Stage {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// IsStage reports whether err, or anything it wraps, is an *Error from stage.
func IsStage(err error, stage Stage) bool {
	return errors.Is(err, &Error{Stage: stage})
}

func newError(stage Stage, kind Kind, format string, args ...any) *Error {
	return &Error{Stage: stage, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) withPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) withSymbol(name string) *Error {
	e.Symbol = name
	return e
}

func (e *Error) withCause(err error) *Error {
	e.Cause = err
	return e
}
