package sgdesc

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/FutureSDR/xilinx-dma"
)

// Field byte offsets within a descriptor, per the AXI DMA Scatter/Gather
// descriptor layout (LogiCORE PG021). Only the low 32 bits of the two
// 64-bit address fields are meaningful on a 32-bit-addressed design; the
// MSB words are still written so the layout matches hardware that does
// decode them.
const (
	offNxtDesc       = 0x00
	offNxtDescMSB    = 0x04
	offBufferAddr    = 0x08
	offBufferAddrMSB = 0x0c
	offControl       = 0x18
	offStatus        = 0x1c

	// Align is the required alignment of a descriptor's base address: the
	// low 6 bits of NXTDESC are hardwired to zero by the engine, so every
	// descriptor in a ring must start on a 64-byte boundary.
	Align = 0x40

	// Size is the span of one descriptor record. Only the first 32 bytes
	// carry fields this package knows about; the rest is reserved/app-data
	// space the hardware does not interpret, kept so descriptors can be
	// packed back-to-back in a ring without overlap.
	Size = 0x40

	maxLength = 1<<26 - 1

	controlEOF = 1 << 26
	controlSOF = 1 << 27

	statusLengthMask = 1<<26 - 1
	statusRxEOF      = 1 << 26
	statusRxSOF      = 1 << 27
	statusIntErr     = 1 << 28
	statusSlvErr     = 1 << 29
	statusDecErr     = 1 << 30
	statusCompleted  = 1 << 31
)

// Descriptor is a typed view over one 64-byte scatter-gather descriptor
// record, backed by someone else's memory (see the package doc comment).
type Descriptor struct {
	mem  []byte
	phys uint64
}

// New wraps mem as a Descriptor whose hardware address (as the engine will
// see it, e.g. a dmabuf.Buffer's PhysAddr plus an offset into it) is phys.
//
// mem must be at least Size bytes and phys must be a multiple of Align;
// New panics otherwise, the same contract sgdesc's Rust original enforces
// with an assert in set_next_descriptor.
func New(mem []byte, phys uint64) *Descriptor {
	if len(mem) < Size {
		panic(fmt.Sprintf("sgdesc: mem too small: got %d bytes, need %d", len(mem), Size))
	}
	if phys%Align != 0 {
		panic(fmt.Sprintf("sgdesc: phys address %#x is not %d-byte aligned", phys, Align))
	}
	return &Descriptor{mem: mem[:Size:Size], phys: phys}
}

// PhysAddr returns the bus address this descriptor's record lives at.
func (d *Descriptor) PhysAddr() uint64 { return d.phys }

// Bytes returns the raw 64-byte record backing this Descriptor.
func (d *Descriptor) Bytes() []byte { return d.mem }

// field access below is non-volatile for every word except STATUS: the DMA
// engine never writes NXTDESC/BUFFER_ADDRESS/CONTROL once the descriptor is
// enqueued, and the CPU writes those fields only before enqueuing, so plain
// reads observe the program's own prior writes in program order. STATUS is
// written by the engine, so every read of it goes through sync/atomic to
// stop the compiler from reusing a stale value instead of reloading from
// memory (Go has no volatile qualifier; atomic is the closest substitute
// that also happens to forbid the compiler from caching the load).

func (d *Descriptor) readU32(off int) uint32 {
	return binary.LittleEndian.Uint32(d.mem[off : off+4])
}

func (d *Descriptor) writeU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(d.mem[off:off+4], v)
}

func (d *Descriptor) statusPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&d.mem[offStatus]))
}

func (d *Descriptor) loadStatus() uint32 {
	return atomic.LoadUint32(d.statusPtr())
}

// NextDescriptor returns the bus address of the next descriptor in the
// ring, as currently programmed.
func (d *Descriptor) NextDescriptor() uint64 {
	lo := uint64(d.readU32(offNxtDesc))
	hi := uint64(d.readU32(offNxtDescMSB))
	return hi<<32 | lo
}

// SetNextDescriptor programs the bus address of the next descriptor in the
// ring. addr must be Align-aligned.
func (d *Descriptor) SetNextDescriptor(addr uint64) {
	if addr%Align != 0 {
		panic(fmt.Sprintf("sgdesc: next descriptor address %#x is not %d-byte aligned", addr, Align))
	}
	d.writeU32(offNxtDesc, uint32(addr))
	d.writeU32(offNxtDescMSB, uint32(addr>>32))
}

// BufferAddress returns the bus address of the data buffer this descriptor
// points at.
func (d *Descriptor) BufferAddress() uint64 {
	lo := uint64(d.readU32(offBufferAddr))
	hi := uint64(d.readU32(offBufferAddrMSB))
	return hi<<32 | lo
}

// SetBufferAddress programs the bus address of the data buffer this
// descriptor points at.
func (d *Descriptor) SetBufferAddress(addr uint64) {
	d.writeU32(offBufferAddr, uint32(addr))
	d.writeU32(offBufferAddrMSB, uint32(addr>>32))
}

// BufferLength returns the programmed transfer length, in bytes.
func (d *Descriptor) BufferLength() uint32 {
	return d.readU32(offControl) & statusLengthMask
}

// SetBufferLength programs the transfer length, in bytes. length must fit
// in 26 bits (the CONTROL field's LENGTH is that wide); SetBufferLength
// panics if it doesn't, mirroring the Rust original's assert.
func (d *Descriptor) SetBufferLength(length uint32) {
	if length > maxLength {
		panic(fmt.Sprintf("sgdesc: buffer length %d exceeds %d-bit field", length, 26))
	}
	ctrl := d.readU32(offControl)
	d.writeU32(offControl, (ctrl &^ statusLengthMask) | length)
}

// EOF reports the CONTROL.EOF flag: whether this descriptor ends a packet
// (a user-defined frame boundary on the AXI4-Stream side).
func (d *Descriptor) EOF() bool {
	return d.readU32(offControl)&controlEOF != 0
}

// SetEOF programs the CONTROL.EOF flag.
func (d *Descriptor) SetEOF(v bool) {
	d.setControlBit(controlEOF, v)
}

// SOF reports the CONTROL.SOF flag: whether this descriptor starts a
// packet.
func (d *Descriptor) SOF() bool {
	return d.readU32(offControl)&controlSOF != 0
}

// SetSOF programs the CONTROL.SOF flag.
func (d *Descriptor) SetSOF(v bool) {
	d.setControlBit(controlSOF, v)
}

func (d *Descriptor) setControlBit(bit uint32, v bool) {
	ctrl := d.readU32(offControl)
	if v {
		ctrl |= bit
	} else {
		ctrl &^= bit
	}
	d.writeU32(offControl, ctrl)
}

// TransferredBytes returns STATUS.LENGTH: how many bytes the engine
// actually moved for this descriptor. Only meaningful once Completed is
// true.
func (d *Descriptor) TransferredBytes() uint32 {
	return d.loadStatus() & statusLengthMask
}

// StatusRxEOF reports STATUS.RXEOF (S2MM only): whether this descriptor's
// buffer ended a received packet.
func (d *Descriptor) StatusRxEOF() bool {
	return d.loadStatus()&statusRxEOF != 0
}

// StatusRxSOF reports STATUS.RXSOF (S2MM only): whether this descriptor's
// buffer started a received packet.
func (d *Descriptor) StatusRxSOF() bool {
	return d.loadStatus()&statusRxSOF != 0
}

// DMAInternalError reports STATUS.DMAIntErr.
func (d *Descriptor) DMAInternalError() bool {
	return d.loadStatus()&statusIntErr != 0
}

// DMASlaveError reports STATUS.DMASlvErr.
func (d *Descriptor) DMASlaveError() bool {
	return d.loadStatus()&statusSlvErr != 0
}

// DMADecodeError reports STATUS.DMADecErr.
func (d *Descriptor) DMADecodeError() bool {
	return d.loadStatus()&statusDecErr != 0
}

// Completed reports STATUS.Cmplt: whether the engine has finished with
// this descriptor (successfully or not — check the error bits too).
//
// Completed is the synchronization point between the CPU and the engine:
// once a caller observes Completed() == true, it must call barrier.Barrier
// before reading TransferredBytes or the buffer's data, to make sure the
// CPU doesn't see a stale cache line underneath the STATUS write it just
// observed.
func (d *Descriptor) Completed() bool {
	return d.loadStatus()&statusCompleted != 0
}

// SetCompleted sets or clears STATUS.Cmplt directly. Software sets it on a
// descriptor that has not been enqueued yet to mark the slot as free, so a
// first WaitSGComplete* on it returns at once; axidma's EnqueueSGH2D and
// EnqueueSGD2H clear the whole STATUS word, so a value set here does not
// carry into an enqueue. The engine itself only ever sets it, never clears
// it.
func (d *Descriptor) SetCompleted(v bool) {
	status := d.loadStatus()
	if v {
		status |= statusCompleted
	} else {
		status &^= statusCompleted
	}
	d.writeU32(offStatus, status)
}

// ClearStatus zeroes the entire STATUS word. Call it before re-enqueuing a
// descriptor the engine has already completed, so stale error/length bits
// from the previous transfer don't leak into the next one.
func (d *Descriptor) ClearStatus() {
	d.writeU32(offStatus, 0)
}

// Error inspects STATUS and, if any of its three error bits (28-30) is
// set, returns a *xdma.Error describing it. It returns nil for
// a descriptor that completed cleanly.
func (d *Descriptor) Error() error {
	status := d.loadStatus()
	switch {
	case status&statusIntErr != 0:
		return xdma.WrapStatus("sgdesc.Descriptor", xdma.SgInternal, status)
	case status&statusSlvErr != 0:
		return xdma.WrapStatus("sgdesc.Descriptor", xdma.SgSlave, status)
	case status&statusDecErr != 0:
		return xdma.WrapStatus("sgdesc.Descriptor", xdma.SgDecode, status)
	default:
		return nil
	}
}
