// Package xdma is a user-space driver library for the Xilinx AXI-DMA soft IP
// block found on Zynq and Zynq MPSoC devices.
//
// It drives the DMA engine through memory-mapped control registers exposed by
// the Linux UIO (userspace I/O) subsystem, and it moves data through
// physically contiguous, DMA-coherent buffers exposed by the u-dma-buf kernel
// module. Two transfer modes are supported: simple mode, where the CPU
// programs a single buffer address and length directly into the engine's
// registers, and Scatter-Gather mode, where the CPU builds a ring of
// descriptors that the engine walks on its own.
//
// Three tightly-coupled subsystems carry the engineering weight:
//
//   - package axidma drives the engine itself: register protocol, reset,
//     simple-mode start/wait, and the Scatter-Gather state machine.
//   - package sgdesc is the typed accessor over one Scatter-Gather
//     descriptor, a 64-byte record the CPU and the DMA both read and write.
//   - package barrier is the one architecture-specific primitive binding the
//     two together: a full data memory barrier, required because the CPU
//     and the DMA share DRAM but not a cache-coherent view of it.
//
// package dmabuf represents one u-dma-buf region — the buffers the engine
// reads from and writes to, and the arena backing rings of sgdesc
// descriptors.
//
// This package (xdma) holds only what every other package needs: the shared
// error taxonomy. It has no state and no I/O of its own.
//
// Locating which /dev/uioN corresponds to which DMA channel, and which
// u-dma-buf name corresponds to which buffer, is the caller's job — this
// library only ever opens a name it is given.
package xdma // import "github.com/FutureSDR/xilinx-dma"
