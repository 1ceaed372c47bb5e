//go:build !linux

package axidma

import "errors"

func mmap(fd uintptr, offset int64, length int) ([]byte, error) {
	return nil, errors.New("axidma: mmap is only supported on linux")
}

func munmap(b []byte) error {
	return errors.New("axidma: munmap is only supported on linux")
}
