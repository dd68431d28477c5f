//go:build !cplex || !cgo

// Stub native layer for builds without the CPLEX SDK.
// Build with -tags cplex (and cgo enabled) after running go generate to link
// the real library.

package cplex

import "unsafe"

var lib native = stubNative{}

// stubNative never touches the status, so Open fails with
// ErrStatusNotWritten.
type stubNative struct{}

func (stubNative) openEnv(*int32) unsafe.Pointer {
	return nil
}

func (stubNative) closeEnv(*unsafe.Pointer) int32 {
	return statusNotWritten
}

func (stubNative) backend() string {
	return "stub"
}
