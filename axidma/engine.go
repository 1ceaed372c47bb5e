package axidma

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/FutureSDR/xilinx-dma/barrier"

	"github.com/FutureSDR/xilinx-dma"
)

// mmapFunc/munmapFunc/openUio are test seams, the same pattern dmabuf uses
// for mmapFunc/munmapFunc and host/sysfs uses for fileIOOpen.
var (
	mmapFunc   = mmap
	munmapFunc = munmap
	openUio    = os.OpenFile
	readFile   = os.ReadFile
)

// Engine drives one AXI-DMA core over its UIO mapping. It is not safe for
// concurrent use by multiple goroutines against the same channel; callers
// doing full-duplex H2D+D2H traffic should serialize each channel's calls
// themselves (a single goroutine per channel is the simplest approach,
// mirroring how the Rust original's examples use one thread per direction).
type Engine struct {
	uioName string
	dev     *os.File
	lock    *flock.Flock
	regs    []byte // mmap of the UIO map0 region
	log     *logrus.Entry
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the logger an Engine reports status and diagnostics
// through. The default is logrus.StandardLogger() tagged with the uio
// device name.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// Open mmaps the UIO device named uio (i.e. /dev/<uio>, sized by
// /sys/class/uio/<uio>/maps/map0/size) and takes an exclusive advisory
// lock on it via flock, so two Engines in the same process tree don't
// fight over one AXI-DMA instance.
func Open(uio string, opts ...Option) (eng *Engine, err error) {
	sizeRaw, err := readFile(fmt.Sprintf("/sys/class/uio/%s/maps/map0/size", uio))
	if err != nil {
		return nil, xdma.Wrap("axidma.Open", xdma.Io, err)
	}
	size, err := parseHexSize(sizeRaw)
	if err != nil {
		return nil, xdma.Wrap("axidma.Open", xdma.SysfsParse, err)
	}

	lock := flock.New(fmt.Sprintf("/var/lock/axidma-%s.lock", uio))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, xdma.Wrap("axidma.Open", xdma.Io, err)
	}
	if !locked {
		return nil, xdma.Wrap("axidma.Open", xdma.Io, fmt.Errorf("uio device %s is already in use", uio))
	}
	defer func() {
		if err != nil {
			lock.Unlock()
		}
	}()

	dev, err := openUio(fmt.Sprintf("/dev/%s", uio), os.O_RDWR, 0)
	if err != nil {
		return nil, xdma.Wrap("axidma.Open", xdma.Io, err)
	}
	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	regs, err := mmapFunc(dev.Fd(), 0, int(size))
	if err != nil {
		return nil, xdma.Wrap(fmt.Sprintf("axidma.Open(%s)", uio), xdma.MmapFailure, err)
	}

	eng = &Engine{
		uioName: uio,
		dev:     dev,
		lock:    lock,
		regs:    regs,
		log:     logrus.WithField("uio", uio),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng, nil
}

// Close unmaps the register window, closes the UIO device and releases the
// exclusive lock.
func (e *Engine) Close() error {
	err := munmapFunc(e.regs)
	if cerr := e.dev.Close(); err == nil {
		err = cerr
	}
	if cerr := e.lock.Unlock(); err == nil {
		err = cerr
	}
	if err != nil {
		return xdma.Wrap(fmt.Sprintf("axidma(%s).Close", e.uioName), xdma.Io, err)
	}
	return nil
}

func parseHexSize(raw []byte) (uint64, error) {
	s := trimHex(raw)
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	return v, err
}

func trimHex(raw []byte) string {
	s := string(raw)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return s
}

// register access: every field here is written and read back by a
// concurrent hardware engine, so every access goes through sync/atomic
// rather than a plain load/store — the register-file analogue of sgdesc's
// STATUS field.

func (e *Engine) read32(off uint32) uint32 {
	p := (*uint32)(unsafe.Pointer(&e.regs[off]))
	return atomic.LoadUint32(p)
}

func (e *Engine) write32(off uint32, v uint32) {
	p := (*uint32)(unsafe.Pointer(&e.regs[off]))
	atomic.StoreUint32(p, v)
}

func (e *Engine) dmasr(dir Direction) uint32    { return e.read32(dir.regOffset() + regDMASR) }
func (e *Engine) setDMACR(dir Direction, v uint32) { e.write32(dir.regOffset()+regDMACR, v) }
func (e *Engine) dmacr(dir Direction) uint32     { return e.read32(dir.regOffset() + regDMACR) }
func (e *Engine) setDMASR(dir Direction, v uint32) { e.write32(dir.regOffset()+regDMASR, v) }

func (e *Engine) setAddress(dir Direction, addr uint64) {
	base := dir.regOffset() + regSA
	e.write32(base, uint32(addr))
	e.write32(base+4, uint32(addr>>32))
}

func (e *Engine) setLength(dir Direction, length uint32) {
	e.write32(dir.regOffset()+regLENGTH, length)
}

func (e *Engine) length(dir Direction) uint32 {
	return e.read32(dir.regOffset() + regLENGTH)
}

func (e *Engine) setCurrDesc(dir Direction, phys uint64) {
	base := dir.regOffset() + regCURRDESC
	e.write32(base, uint32(phys))
	e.write32(base+4, uint32(phys>>32))
}

func (e *Engine) setTailDesc(dir Direction, phys uint64) {
	base := dir.regOffset() + regTAILDESC
	// MSB first, LSB last: writing the LSB is what (re)starts a stopped
	// engine, so it must be the final write. There is a well-known benign
	// race here — if the engine is already running it may briefly see a
	// half-updated TAILDESC between these two writes — accepted because
	// TAILDESC only has to be correct by the time the engine reaches the
	// end of the ring, not the instant it's written. Do not "fix" this by
	// trying to make it atomic; the 64-bit register doesn't support a
	// single-cycle write on this bus.
	e.write32(base+4, uint32(phys>>32))
	e.write32(base, uint32(phys))
}

// checkErrors decodes a DMASR (or SR) word into the matching *xdma.Error,
// or nil if no error bit is set.
func checkErrors(op string, status uint32) error {
	switch {
	case status&dmasrDMAIntErr != 0:
		return xdma.WrapStatus(op, xdma.DmaInternal, status)
	case status&dmasrDMASlvErr != 0:
		return xdma.WrapStatus(op, xdma.DmaSlave, status)
	case status&dmasrDMADecErr != 0:
		return xdma.WrapStatus(op, xdma.DmaDecode, status)
	case status&dmasrSGIntErr != 0:
		return xdma.WrapStatus(op, xdma.SgInternal, status)
	case status&dmasrSGSlvErr != 0:
		return xdma.WrapStatus(op, xdma.SgSlave, status)
	case status&dmasrSGDecErr != 0:
		return xdma.WrapStatus(op, xdma.SgDecode, status)
	default:
		return nil
	}
}

// enableIRQ re-arms the UIO interrupt: writing a 4-byte "1" to the UIO
// device file unmasks the IRQ line at the UIO driver, the standard UIO
// interrupt-acknowledgment protocol.
func (e *Engine) enableIRQ() error {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], 1)
	if _, err := e.dev.Write(word[:]); err != nil {
		return xdma.Wrap(fmt.Sprintf("axidma(%s).enableIRQ", e.uioName), xdma.Io, err)
	}
	return nil
}

// waitIRQ blocks until the UIO driver signals an interrupt occurred
// (reading 4 bytes from the UIO device file is how UIO reports IRQ
// counts).
func (e *Engine) waitIRQ() error {
	var word [4]byte
	if _, err := e.dev.Read(word[:]); err != nil {
		return xdma.Wrap(fmt.Sprintf("axidma(%s).waitIRQ", e.uioName), xdma.Io, err)
	}
	return nil
}

// Reset resets both channels and waits for the reset bit to self-clear,
// bounded by a capped exponential backoff so a wedged core cannot hang
// this call forever. The original Rust implementation spins forever; this
// is the implementation-level timeout spec.md explicitly permits adding.
func (e *Engine) Reset() error {
	for _, dir := range []Direction{H2D, D2H} {
		e.setDMACR(dir, dmacrReset)
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = 2 * time.Second
		b.InitialInterval = 100 * time.Microsecond
		err := backoff.Retry(func() error {
			if e.dmacr(dir)&dmacrReset == 0 {
				return nil
			}
			return fmt.Errorf("reset still pending")
		}, b)
		if err != nil {
			return xdma.Wrap(fmt.Sprintf("axidma(%s).Reset(%s)", e.uioName, dir), xdma.Timeout, err)
		}
	}
	e.setDMASR(H2D, dmasrClearIrqs)
	e.setDMASR(D2H, dmasrClearIrqs)
	return nil
}

// StartH2D starts (or continues) a simple-mode MM2S transfer of bytes
// bytes from buf's start, and arms the UIO interrupt so a subsequent
// WaitH2D can block on it.
func (e *Engine) StartH2D(buf Bufferer, bytes uint32) error {
	return e.startSimple(H2D, buf, bytes)
}

// StartD2H starts (or continues) a simple-mode S2MM transfer of up to
// bytes bytes into buf's start, and arms the UIO interrupt so a subsequent
// WaitD2H can block on it.
func (e *Engine) StartD2H(buf Bufferer, bytes uint32) error {
	return e.startSimple(D2H, buf, bytes)
}

func (e *Engine) startSimple(dir Direction, buf Bufferer, bytes uint32) error {
	if buf.Size() < uint64(bytes) {
		return xdma.Wrap(fmt.Sprintf("axidma.start%s", dir), xdma.Io, fmt.Errorf("buffer size %d smaller than transfer %d", buf.Size(), bytes))
	}
	if dir == H2D {
		// Make sure the CPU's writes to buf have left the store buffer
		// before the engine is told to fetch from it.
		barrier.Barrier()
	}
	e.setDMASR(dir, dmasrClearIrqs)
	if err := e.enableIRQ(); err != nil {
		return err
	}
	e.setDMACR(dir, dmacrStartSimple)
	e.setAddress(dir, buf.PhysAddr())
	// LENGTH must be written last: on MM2S/S2MM simple mode, writing
	// LENGTH is what kicks the transfer off.
	e.setLength(dir, bytes)
	return nil
}

// WaitH2D blocks until the MM2S channel signals completion (or error) of
// the transfer started by StartH2D.
func (e *Engine) WaitH2D() error {
	return e.waitSimple(H2D)
}

// WaitD2H blocks until the S2MM channel signals completion (or error) of
// the transfer started by StartD2H.
func (e *Engine) WaitD2H() error {
	return e.waitSimple(D2H)
}

func (e *Engine) waitSimple(dir Direction) error {
	if err := e.waitIRQ(); err != nil {
		return err
	}
	status := e.dmasr(dir)
	if err := checkErrors(fmt.Sprintf("axidma.wait%s", dir), status); err != nil {
		return err
	}
	e.setDMASR(dir, dmasrClearIrqs)
	return nil
}

// TransferredD2H returns S2MM_LENGTH: the number of bytes the last S2MM
// transfer actually wrote. In simple mode this equals the length passed
// to StartD2H unless the AXI4-Stream source asserts TLAST early (a short
// packet), in which case it is the smaller count received; supplementing the original Rust API, which didn't
// expose this accessor on the MM2S side.
func (e *Engine) TransferredD2H() uint32 {
	return e.length(D2H)
}

// Bufferer is the subset of dmabuf.Buffer that Engine's simple-mode
// transfers need: a physical address and a size to bounds-check against.
// Accepting an interface instead of a concrete *dmabuf.Buffer keeps this
// package decoupled from dmabuf and trivially testable with a fake.
type Bufferer interface {
	PhysAddr() uint64
	Size() uint64
}
