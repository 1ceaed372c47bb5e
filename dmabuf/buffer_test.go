package dmabuf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeSysfs builds a u-dma-buf-like sysfs+dev tree under a temp dir and
// rewrites openFile to resolve absolute sysfs/dev paths into it, the same
// substitution pattern host/sysfs tests use for fileIOOpen.
func fakeSysfs(t *testing.T, name string, physAddr uint64, size uint64) (restore func()) {
	t.Helper()
	root := t.TempDir()
	sysfsDir := filepath.Join(root, "sys", "class", "u-dma-buf", name)
	if err := os.MkdirAll(sysfsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(rel, content string) {
		if err := os.WriteFile(filepath.Join(sysfsDir, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("phys_addr", "0x1a000000\n")
	if physAddr != 0x1a000000 {
		write("phys_addr", toHex(physAddr))
	}
	write("size", toDecimal(size))
	write("debug_vma", "0\n")
	write("sync_mode", "1\n")
	write("sync_for_cpu", "")
	write("sync_for_device", "")

	devDir := filepath.Join(root, "dev")
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		t.Fatal(err)
	}
	devFile := filepath.Join(devDir, name)
	if err := os.WriteFile(devFile, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}

	prevOpen := openFile
	prevMmap := mmapFunc
	prevMunmap := munmapFunc

	openFile = func(path string, flag int, perm os.FileMode) (*os.File, error) {
		if strings.HasPrefix(path, "/sys/class/u-dma-buf/") {
			rel := strings.TrimPrefix(path, "/sys/class/u-dma-buf/")
			return os.OpenFile(filepath.Join(root, "sys", "class", "u-dma-buf", rel), flag, 0o644)
		}
		if strings.HasPrefix(path, "/dev/") {
			rel := strings.TrimPrefix(path, "/dev/")
			return os.OpenFile(filepath.Join(root, "dev", rel), flag, 0o644)
		}
		return prevOpen(path, flag, perm)
	}
	mmapFunc = func(fd uintptr, offset int64, length int) ([]byte, error) {
		return make([]byte, length), nil
	}
	munmapFunc = func(b []byte) error { return nil }

	return func() {
		openFile = prevOpen
		mmapFunc = prevMmap
		munmapFunc = prevMunmap
	}
}

func toHex(v uint64) string {
	return "0x" + uintToString(v, 16) + "\n"
}

func toDecimal(v uint64) string {
	return uintToString(v, 10) + "\n"
}

func uintToString(v uint64, base int) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [64]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%uint64(base)]
		v /= uint64(base)
	}
	return string(buf[i:])
}

// TestConstructionRoundTrip is spec.md §8 property #1: for a valid u-dma-buf
// with sysfs attrs {phys_addr=P, size=S}, New reports phys_addr=P, size=S,
// and the typed view has length S/sizeof(T).
func TestConstructionRoundTrip(t *testing.T) {
	const physAddr = 0x18000000
	const size = 4096
	restore := fakeSysfs(t, "udmabuf0", physAddr, size)
	defer restore()

	buf, err := New("udmabuf0")
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	if buf.PhysAddr() != physAddr {
		t.Errorf("PhysAddr() = %#x, want %#x", buf.PhysAddr(), uint64(physAddr))
	}
	if buf.Size() != size {
		t.Errorf("Size() = %d, want %d", buf.Size(), size)
	}
	if buf.Name() != "udmabuf0" {
		t.Errorf("Name() = %q, want udmabuf0", buf.Name())
	}
	if got := len(buf.Bytes()); got != size {
		t.Errorf("len(Bytes()) = %d, want %d", got, size)
	}
	view := Slice[uint32](buf)
	if got, want := len(view), size/4; got != want {
		t.Errorf("len(Slice[uint32]) = %d, want %d", got, want)
	}
}

// TestSliceAliasesBytes exercises the deliberately aliasable-view contract:
// writing through one view is visible through another, because they are the
// same memory.
func TestSliceAliasesBytes(t *testing.T) {
	restore := fakeSysfs(t, "udmabuf1", 0x19000000, 16)
	defer restore()

	buf, err := New("udmabuf1")
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	words := Slice[uint32](buf)
	words[0] = 0xdeadbeef
	if got := buf.Bytes()[0]; got != 0xef {
		t.Errorf("Bytes()[0] = %#x, want 0xef (little endian low byte)", got)
	}
}

// dataGenerator/dataChecker mirror sg_loopback.rs's DataGenerator/DataChecker:
// a wrapping uint32 counter that stands in for a real transfer's payload,
// used here to validate the aliasable-view contract (§8#1, §9) rather than
// an actual DMA.
type dataGenerator struct{ counter uint32 }

func (g *dataGenerator) fill(buf []uint32) {
	for i := range buf {
		buf[i] = g.counter
		g.counter++
	}
}

type dataChecker struct{ counter uint32 }

func (c *dataChecker) check(t *testing.T, buf []uint32) {
	t.Helper()
	for _, v := range buf {
		if v != c.counter {
			t.Fatalf("data mismatch: got %d, want %d", v, c.counter)
		}
		c.counter++
	}
}

// TestGeneratorCheckerSeeSameMemory drives a generator/checker pair over two
// independently obtained Slice[uint32] views of the same Buffer, the same
// way sg_loopback.rs's H2D/D2H sides only agree on what a descriptor
// transferred because both views alias one mapping.
func TestGeneratorCheckerSeeSameMemory(t *testing.T) {
	restore := fakeSysfs(t, "udmabuf-gen", 0x1b000000, 256)
	defer restore()

	buf, err := New("udmabuf-gen")
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	var gen dataGenerator
	gen.fill(Slice[uint32](buf))

	var chk dataChecker
	chk.check(t, Slice[uint32](buf))
}

func TestSysfsParseErrors(t *testing.T) {
	restore := fakeSysfs(t, "udmabufbad", 0x1000, 16)
	defer restore()

	// Corrupt the phys_addr attribute after fakeSysfs wrote a valid one.
	f, err := openFile("/sys/class/u-dma-buf/udmabufbad/phys_addr", os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not-hex\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := New("udmabufbad"); err == nil {
		t.Fatal("expected a SysfsParse error, got nil")
	}
}
