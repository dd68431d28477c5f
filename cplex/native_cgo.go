//go:build cplex && cgo

package cplex

import "C"

import "unsafe"

var lib native = cgoNative{}

// cgoNative calls the generated raw bindings.
type cgoNative struct{}

func (cgoNative) openEnv(status *int32) unsafe.Pointer {
	cStatus := C.int(*status)
	env := rawCPXopenCPLEX(&cStatus)
	*status = int32(cStatus)
	return unsafe.Pointer(env)
}

func (cgoNative) closeEnv(env *unsafe.Pointer) int32 {
	cEnv := rawCPXENVptr(*env)
	status := rawCPXcloseCPLEX(&cEnv)
	*env = unsafe.Pointer(cEnv)
	return int32(status)
}

func (cgoNative) backend() string {
	return "cplex (cgo, static)"
}
