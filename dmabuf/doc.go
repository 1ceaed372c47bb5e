// Package dmabuf represents one physically contiguous, DMA-coherent memory
// region exposed by the u-dma-buf out-of-tree Linux kernel module.
//
// u-dma-buf allocates a chunk of memory at boot (or module-load) time and
// publishes it as a pair of filesystem objects: a device node, /dev/<name>,
// that a process mmaps to get a user-space view of the region, and a sysfs
// directory, /sys/class/u-dma-buf/<name>/, whose attribute files describe
// the region (its physical address, its size, whether it is cache-coherent)
// and let the process ask the kernel to clean or invalidate CPU caches over
// it.
//
// The AXI-DMA engine (package axidma) only ever sees the physical address;
// the CPU only ever touches the region through the mmapped virtual address.
// A Buffer is the bridge between the two.
//
// Whether a given Buffer's memory is cached or not is set outside this
// package, by the device-tree entry backing it. Buffer exposes SyncForCPU
// and SyncForDevice unconditionally; calling them on an uncached buffer is
// harmless but unnecessary.
package dmabuf
