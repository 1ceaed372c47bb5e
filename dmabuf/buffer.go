package dmabuf

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/FutureSDR/xilinx-dma"
)

// mmapFunc/munmapFunc indirect through the platform-selected mmap/munmap
// (mmap_linux.go/mmap_other.go) so tests can substitute an in-memory fake,
// the same seam host/pmem's alloc_test.go uses for allocLinux.
var (
	mmapFunc   = mmap
	munmapFunc = munmap
)

// Buffer represents one u-dma-buf region mapped into this process.
//
// Its virt mapping covers exactly Size() bytes of the same physical region
// named by PhysAddr(), and PhysAddr() is stable for the lifetime of the
// Buffer. The mapping is aliasable: Bytes and Slice may be called any number
// of times and each call returns a view over the same underlying memory:
// this package deliberately does not try to enforce exclusive access the
// way a safe Go API normally would, because the DMA engine is a concurrent
// writer/reader the type system cannot see. Callers coordinate access
// externally — typically via the completed flag on an sgdesc.Descriptor, or
// by construction (simple mode: one buffer per in-flight transfer).
type Buffer struct {
	name     string
	size     uint64
	physAddr uint64
	syncMode bool
	debugVMA bool
	raw      []byte // the full mmap, via the platform mmap/munmap vars
	dev      *os.File
	syncCPU  *os.File
	syncDev  *os.File
}

// New opens the u-dma-buf region named name: it reads
// /sys/class/u-dma-buf/<name>/{phys_addr,size,debug_vma,sync_mode}, opens
// /sys/class/u-dma-buf/<name>/{sync_for_cpu,sync_for_device} for writing,
// opens /dev/<name> and mmaps the whole region read-write/shared.
//
// name must already be known to the running kernel (a u-dma-buf
// device-tree entry, or module parameter, created it); New does not search
// for or create anything.
func New(name string) (buf *Buffer, err error) {
	base := fmt.Sprintf("/sys/class/u-dma-buf/%s/", name)

	physAddr, err := readSysfsHex(base + "phys_addr")
	if err != nil {
		return nil, err
	}
	size, err := readSysfsDecimal(base + "size")
	if err != nil {
		return nil, err
	}
	debugVMA, err := readSysfsBool(base + "debug_vma")
	if err != nil {
		return nil, err
	}
	syncMode, err := readSysfsBool(base + "sync_mode")
	if err != nil {
		return nil, err
	}
	syncCPU, err := openFile(base+"sync_for_cpu", os.O_WRONLY, 0)
	if err != nil {
		return nil, xdma.Wrap("dmabuf.New", xdma.Io, err)
	}
	defer func() {
		if err != nil {
			syncCPU.Close()
		}
	}()
	syncDev, err := openFile(base+"sync_for_device", os.O_WRONLY, 0)
	if err != nil {
		return nil, xdma.Wrap("dmabuf.New", xdma.Io, err)
	}
	defer func() {
		if err != nil {
			syncDev.Close()
		}
	}()

	dev, err := openFile(fmt.Sprintf("/dev/%s", name), os.O_RDWR, 0)
	if err != nil {
		return nil, xdma.Wrap("dmabuf.New", xdma.Io, err)
	}
	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	raw, err := mmapFunc(dev.Fd(), 0, int(size))
	if err != nil {
		return nil, xdma.Wrap(fmt.Sprintf("dmabuf.New(%s)", name), xdma.MmapFailure, err)
	}

	return &Buffer{
		name:     name,
		size:     size,
		physAddr: physAddr,
		debugVMA: debugVMA,
		syncMode: syncMode,
		raw:      raw,
		dev:      dev,
		syncCPU:  syncCPU,
		syncDev:  syncDev,
	}, nil
}

// Name returns the u-dma-buf name this Buffer was opened with.
func (b *Buffer) Name() string { return b.name }

// Size returns the size of the region, in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// PhysAddr returns the physical address of the region, as seen by bus
// masters such as the DMA engine.
func (b *Buffer) PhysAddr() uint64 { return b.physAddr }

// DebugVMA reports the debug_vma sysfs flag: whether u-dma-buf logs mmap
// activity for this region.
func (b *Buffer) DebugVMA() bool { return b.debugVMA }

// SyncMode reports the sync_mode sysfs flag: whether this region is backed
// by cache-coherent (DMA-coherent) memory.
func (b *Buffer) SyncMode() bool { return b.syncMode }

// Bytes returns the raw mmapped region as a byte slice of length Size().
//
// The returned slice aliases the mmap; it remains valid until Close.
func (b *Buffer) Bytes() []byte { return b.raw }

// SyncForCPU asks the kernel to invalidate the CPU's cache over this
// region. Call it before the CPU reads a buffer the device just finished
// writing (a D2H/S2MM destination).
func (b *Buffer) SyncForCPU() error {
	if _, err := b.syncCPU.WriteAt([]byte("1"), 0); err != nil {
		return xdma.Wrap(fmt.Sprintf("dmabuf(%s).SyncForCPU", b.name), xdma.Io, err)
	}
	return nil
}

// SyncForDevice asks the kernel to clean (write back) the CPU's cache over
// this region. Call it after the CPU writes a buffer that is about to be
// handed to the device (an H2D/MM2S source), if the buffer is cacheable.
func (b *Buffer) SyncForDevice() error {
	if _, err := b.syncDev.WriteAt([]byte("1"), 0); err != nil {
		return xdma.Wrap(fmt.Sprintf("dmabuf(%s).SyncForDevice", b.name), xdma.Io, err)
	}
	return nil
}

// Close unmaps the region and closes every file handle this Buffer opened.
func (b *Buffer) Close() error {
	err := munmapFunc(b.raw)
	if cerr := b.dev.Close(); err == nil {
		err = cerr
	}
	if cerr := b.syncCPU.Close(); err == nil {
		err = cerr
	}
	if cerr := b.syncDev.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return xdma.Wrap(fmt.Sprintf("dmabuf(%s).Close", b.name), xdma.Io, err)
	}
	return nil
}

// Slice reinterprets a Buffer's mmapped region as a slice of T, of length
// Size()/sizeof(T). It is the typed-view counterpart of Bytes, generalizing
// host/pmem's Slice.Uint32() to any fixed-size T via generics.
//
// The returned slice aliases the same memory as every other view of this
// Buffer: concurrent mutation through two views, or through a view and the
// DMA engine, is the caller's responsibility to serialize (see the Buffer
// doc comment).
func Slice[T any](b *Buffer) []T {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	n := uintptr(len(b.raw)) / elemSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.raw[0])), n)
}

