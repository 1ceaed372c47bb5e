package barrier

// Barrier emits a full data memory barrier (DMB SY on ARMv7-A and AArch64;
// a compiler fence only everywhere else).
//
// After Barrier returns, every store issued by this goroutine's CPU prior to
// the call is observable by any other bus master — including the DMA engine
// — before any store issued after the call, and symmetrically for loads.
//
// Call it:
//   - after filling a buffer or initializing a descriptor and before handing
//     its address to the engine (publish);
//   - after observing a descriptor's completed bit and before reading the
//     payload it describes (acquire) — see package sgdesc.
//
// dmb is implemented in architecture-specific assembly (barrier_arm.s,
// barrier_arm64.s) or as a no-op (barrier_other.go). A call to it is already
// an effective compiler fence: the Go compiler cannot move a memory
// operation across a call into a function it cannot see the body of, so no
// separate fence is needed on either side the way the C/Rust original
// brackets its FFI call with explicit compiler_fence(SeqCst).
func Barrier() {
	dmb()
}
