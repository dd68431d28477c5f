// Package cplex provides a Go handle to the IBM ILOG CPLEX environment.
//
// CPLEX is a commercial solver for linear, mixed-integer and quadratic
// programming problems. This package links the vendor's static library
// through cgo bindings generated from bridge.hcl, and only exposes creating
// and releasing an environment.
//
// # Building
//
// The bindings are generated from a local CPLEX installation:
//
//	go generate -tags cplex ./cplex
//	go build -tags cplex ./...
//
// The generator looks under /opt/ibm/ILOG/*/cplex, or $CPLEX_STUDIO_DIR/cplex
// when set, and picks the newest installation. Without the cplex tag the
// package builds against a stub and Open always fails.
//
// # Example
//
//	env, err := cplex.Open()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer env.Close()
//
// Or, releasing the environment on every return path:
//
//	err := cplex.With(func(env *cplex.Env) error {
//		// ...
//		return nil
//	})
package cplex

import (
	"errors"
	"math"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
)

// statusNotWritten is stored in the status before calling CPXopenCPLEX. CPLEX
// never reports a negative status, so seeing this value after the call means
// the routine returned without writing one.
const statusNotWritten int32 = math.MinInt32

// Env owns one CPLEX environment.
//
// An Env is not safe for concurrent use. Always call Close when done:
//
//	env, _ := cplex.Open()
//	defer env.Close()
type Env struct {
	ptr unsafe.Pointer
}

// Open creates a CPLEX environment. It succeeds only when CPLEX reports a
// zero status; any other status is returned as an *EnvError carrying the
// code.
func Open() (*Env, error) {
	status := statusNotWritten
	ptr := lib.openEnv(&status)

	if status != 0 {
		err := &EnvError{Op: "open", Code: status}
		if ptr != nil {
			Logger().Warn("CPXopenCPLEX returned an environment with a failure status; discarding it",
				zap.Int32("status", status))
		}
		Logger().Debug("open failed", zap.Error(err), zap.String("backend", lib.backend()))
		return nil, err
	}

	e := &Env{ptr: ptr}
	if ptr == nil {
		Logger().Warn("CPXopenCPLEX reported success without an environment")
	} else {
		runtime.SetFinalizer(e, (*Env).finalize)
	}
	Logger().Debug("environment opened", zap.String("backend", lib.backend()))
	return e, nil
}

// Close releases the environment. It is safe to call Close multiple times
// and on a nil *Env. If CPLEX refuses to release the environment the Env
// stays open and an *EnvError is returned.
func (e *Env) Close() error {
	if e == nil || e.ptr == nil {
		return nil
	}

	if status := lib.closeEnv(&e.ptr); status != 0 {
		return &EnvError{Op: "close", Code: status}
	}
	e.ptr = nil
	runtime.SetFinalizer(e, nil)
	return nil
}

// Closed reports whether the environment has been released.
func (e *Env) Closed() bool {
	return e == nil || e.ptr == nil
}

func (e *Env) finalize() {
	Logger().Warn("cplex environment garbage collected without Close")
	if err := e.Close(); err != nil {
		Logger().Error("releasing leaked environment failed", zap.Error(err))
	}
}

// With opens an environment, passes it to fn and closes it when fn returns
// or panics. A close failure is joined with fn's error.
func With(fn func(*Env) error) (err error) {
	env, err := Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(env)
}
