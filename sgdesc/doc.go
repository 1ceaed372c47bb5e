// Package sgdesc models one AXI-DMA scatter-gather descriptor: a 64-byte
// hardware record, linked into a ring, that tells the engine where a buffer
// lives and reports back how the transfer over it went.
//
// A Descriptor does not own memory; it is a typed view over 64 bytes
// belonging to someone else (a dmabuf.Buffer, almost always), the same way
// sysfs.Slice's Struct() view borrows a pmem mapping instead of copying it.
// Construct one with New, over a []byte of at least Size bytes, and the
// physical address that same []byte is mapped at (needed because every
// pointer field the descriptor carries — NXTDESC, BUFFER_ADDRESS — is a bus
// address, not a Go pointer).
package sgdesc
