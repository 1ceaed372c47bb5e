//go:build linux

// Package reactor provides a single epoll-backed wait primitive used by
// axidma's async Engine to turn a blocking UIO interrupt read into a
// context.Context-cancellable wait. The caller's goroutine blocks in
// epoll_wait; each Watch call also starts one short-lived helper goroutine
// that turns ctx cancellation into a write on a self-pipe.
//
// It follows the same single-epoll-fd design as host/sysfs's
// eventsListener, generalized from "wake every registered listener on any
// event" to "wait for exactly one fd to become readable, or ctx to be
// cancelled" since axidma only ever has one UIO fd to watch per Engine.
package reactor

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reactor owns one epoll instance and a self-pipe used to interrupt an
// in-progress EpollWait when a caller's context is cancelled.
type Reactor struct {
	epollFd int
	cancelR int
	cancelW int
}

// New creates a Reactor. Callers should create one per Engine and Close it
// when the Engine is closed.
func New() (*Reactor, error) {
	epollFd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	fds, err := unixPipe2()
	if err != nil {
		unix.Close(epollFd)
		return nil, fmt.Errorf("reactor: pipe2: %w", err)
	}
	r := &Reactor{epollFd: epollFd, cancelR: fds[0], cancelW: fds[1]}
	if err := unix.EpollCtl(epollFd, unix.EPOLL_CTL_ADD, r.cancelR, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(r.cancelR),
	}); err != nil {
		r.Close()
		return nil, fmt.Errorf("reactor: epoll_ctl(cancel pipe): %w", err)
	}
	return r, nil
}

func unixPipe2() ([2]int, error) {
	var fds [2]int
	err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK)
	return fds, err
}

// Watch registers fd for EPOLLIN and blocks until fd becomes readable, ctx
// is cancelled, or an error occurs. It returns ctx.Err() on cancellation.
//
// Watch is not safe to call concurrently from multiple goroutines against
// the same Reactor: each Engine's async wait path calls it serially, the
// same restriction the blocking Engine places on its own Wait* methods.
func (r *Reactor) Watch(ctx context.Context, fd int) error {
	if err := unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}); err != nil {
		return fmt.Errorf("reactor: epoll_ctl(add %d): %w", fd, err)
	}
	defer unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			var b [1]byte
			unix.Write(r.cancelW, b[:])
		case <-done:
		}
	}()

	events := make([]unix.EpollEvent, 2)
	for {
		n, err := unix.EpollWait(r.epollFd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}
		for _, ev := range events[:n] {
			if int(ev.Fd) == fd {
				return nil
			}
			if int(ev.Fd) == r.cancelR {
				drainCancelPipe(r.cancelR)
				return ctx.Err()
			}
		}
	}
}

func drainCancelPipe(fd int) {
	var b [64]byte
	for {
		n, err := unix.Read(fd, b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the epoll instance and the cancellation pipe.
func (r *Reactor) Close() error {
	unix.Close(r.cancelR)
	unix.Close(r.cancelW)
	return unix.Close(r.epollFd)
}
