package cplex

import "unsafe"

// native is the foreign surface the wrapper calls. The implementation is
// picked by build tags; tests replace lib directly.
type native interface {
	// openEnv creates an environment and stores the status code in *status.
	openEnv(status *int32) unsafe.Pointer

	// closeEnv releases *env and returns the status code. On success CPLEX
	// sets *env to nil.
	closeEnv(env *unsafe.Pointer) int32

	backend() string
}

// Backend names the native layer compiled into the binary.
func Backend() string {
	return lib.backend()
}
