package dmabuf

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/FutureSDR/xilinx-dma"
)

// openFile is a package variable so tests can swap in a fake without
// touching the real filesystem, the same seam host/sysfs uses for
// fileIOOpen and host/pmem uses for its build-tag-selected mmap/munmap.
var openFile = os.OpenFile

// readSysfsHex reads a sysfs attribute file expected to contain a
// "0x"-prefixed hexadecimal number, such as u-dma-buf's phys_addr.
func readSysfsHex(path string) (uint64, error) {
	raw, err := readSysfsRaw(path)
	if err != nil {
		return 0, xdma.Wrap("dmabuf.readSysfsHex", xdma.Io, err)
	}
	raw = strings.TrimPrefix(raw, "0x")
	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, xdma.Wrap("dmabuf.readSysfsHex("+path+")", xdma.SysfsParse, err)
	}
	return v, nil
}

// readSysfsDecimal reads a sysfs attribute file expected to contain a
// decimal number, such as u-dma-buf's size.
func readSysfsDecimal(path string) (uint64, error) {
	raw, err := readSysfsRaw(path)
	if err != nil {
		return 0, xdma.Wrap("dmabuf.readSysfsDecimal", xdma.Io, err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, xdma.Wrap("dmabuf.readSysfsDecimal("+path+")", xdma.SysfsParse, err)
	}
	return v, nil
}

// readSysfsBool reads a sysfs flag file that contains "0" for false and any
// other content for true, such as u-dma-buf's debug_vma and sync_mode.
func readSysfsBool(path string) (bool, error) {
	raw, err := readSysfsRaw(path)
	if err != nil {
		return false, xdma.Wrap("dmabuf.readSysfsBool", xdma.Io, err)
	}
	return raw != "0", nil
}

func readSysfsRaw(path string) (string, error) {
	f, err := openFile(path, os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
