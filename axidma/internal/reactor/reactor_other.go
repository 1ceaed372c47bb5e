//go:build !linux

package reactor

import (
	"context"
	"errors"
)

// Reactor is a non-functional stand-in on platforms without epoll. axidma's
// async Engine is Linux-only, the same constraint UIO and u-dma-buf
// already impose on the rest of this module.
type Reactor struct{}

func New() (*Reactor, error) {
	return nil, errors.New("reactor: epoll is only supported on linux")
}

func (r *Reactor) Watch(ctx context.Context, fd int) error {
	return errors.New("reactor: epoll is only supported on linux")
}

func (r *Reactor) Close() error { return nil }
