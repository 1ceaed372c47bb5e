//go:build !linux

package dmabuf

import "errors"

func mmap(fd uintptr, offset int64, length int) ([]byte, error) {
	return nil, errors.New("dmabuf: mmap is only supported on linux")
}

func munmap(b []byte) error {
	return errors.New("dmabuf: munmap is only supported on linux")
}
