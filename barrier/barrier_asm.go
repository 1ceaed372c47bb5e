//go:build arm || arm64

package barrier

// dmb is implemented in barrier_arm.s / barrier_arm64.s.
func dmb()
