// Package axidma drives a Xilinx AXI-DMA (LogiCORE PG021) soft IP core
// through its UIO-mapped register window: reset, simple (register-direct)
// transfers, and Scatter-Gather descriptor-ring transfers, on both the
// MM2S (host-to-device) and S2MM (device-to-host) channels.
//
// An Engine owns one /dev/uioN mapping, covering both channels' registers
// (they live in the same 0x1000-byte BAR, S2MM at a +0x30 offset from
// MM2S). It does not own the buffers or descriptors it is told to move;
// callers build those with package dmabuf and sgdesc and hand this package
// only addresses and lengths, the same division of labor as the Rust
// original's AxiDma/DmaBuffer/SgDescriptor split.
//
// Two usage styles are supported: a blocking Engine, whose Wait* methods
// block the calling goroutine on a UIO read, and an AsyncEngine built on
// top of the same register-poking core, whose Wait* methods instead wait
// for the UIO fd through an epoll reactor that a context.Context can
// cancel. Both share the register logic in engine.go and sg.go; only the
// interrupt-wait read differs.
package axidma
