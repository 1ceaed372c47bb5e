package axidma

import (
	"fmt"

	"github.com/FutureSDR/xilinx-dma/barrier"
	"github.com/FutureSDR/xilinx-dma/sgdesc"

	"github.com/FutureSDR/xilinx-dma"
)

// EnqueueSGH2D hands descriptor to the MM2S channel: clears its status,
// starts the channel if it was stopped, and programs descriptor as the new
// tail of the ring.
//
// Returns an *xdma.Error of kind SgDisabled if this core was synthesized
// without Scatter-Gather support.
func (e *Engine) EnqueueSGH2D(descriptor *sgdesc.Descriptor) error {
	return e.enqueueSG(H2D, descriptor)
}

// EnqueueSGD2H hands descriptor to the S2MM channel. See EnqueueSGH2D.
func (e *Engine) EnqueueSGD2H(descriptor *sgdesc.Descriptor) error {
	return e.enqueueSG(D2H, descriptor)
}

func (e *Engine) enqueueSG(dir Direction, d *sgdesc.Descriptor) error {
	// Clear completion before the descriptor is visible to the engine, so
	// a caller's WaitSGComplete* is guaranteed to observe "not yet" until
	// the engine actually finishes this descriptor.
	d.ClearStatus()

	// Make sure the descriptor (and whatever buffer it points at) are
	// visible to the engine before its address is published below.
	barrier.Barrier()

	status := e.dmasr(dir)
	if status&dmasrSGIncl == 0 {
		return xdma.Wrap(fmt.Sprintf("axidma.enqueueSG(%s)", dir), xdma.SgDisabled, fmt.Errorf("core has no scatter-gather support"))
	}
	if err := checkErrors(fmt.Sprintf("axidma.enqueueSG(%s)", dir), status); err != nil {
		return err
	}

	stopped := status&dmasrHalted != 0
	if stopped {
		e.setCurrDesc(dir, d.PhysAddr())
		e.setDMACR(dir, dmacrStartSG)
	}
	e.setTailDesc(dir, d.PhysAddr())
	return nil
}

// WaitSGCompleteH2D blocks until descriptor's STATUS.Cmplt bit is set by
// the MM2S channel, re-arming and waiting on the UIO interrupt in between
// polls and surfacing any hardware fault the channel latches while
// waiting.
func (e *Engine) WaitSGCompleteH2D(descriptor *sgdesc.Descriptor) error {
	return e.waitSGComplete(H2D, descriptor)
}

// WaitSGCompleteD2H blocks until descriptor's STATUS.Cmplt bit is set by
// the S2MM channel. See WaitSGCompleteH2D.
func (e *Engine) WaitSGCompleteD2H(descriptor *sgdesc.Descriptor) error {
	return e.waitSGComplete(D2H, descriptor)
}

func (e *Engine) waitSGComplete(dir Direction, d *sgdesc.Descriptor) error {
	for {
		if d.Completed() {
			// The completed flag is this loop's acquire fence: once it's
			// observed set, barrier.Barrier() makes sure the CPU doesn't
			// read stale cache lines for the rest of the descriptor or the
			// buffer it points at.
			barrier.Barrier()
			if err := d.Error(); err != nil {
				return err
			}
			return nil
		}
		if err := e.enableIRQ(); err != nil {
			return err
		}
		if err := e.waitIRQ(); err != nil {
			return err
		}
		status := e.dmasr(dir)
		if err := checkErrors(fmt.Sprintf("axidma.waitSGComplete(%s)", dir), status); err != nil {
			return err
		}
		e.setDMASR(dir, dmasrClearIrqs)
	}
}

// StatusH2D logs the current MM2S DMACR/DMASR decode at debug level.
func (e *Engine) StatusH2D() { e.logStatus(H2D) }

// StatusD2H logs the current S2MM DMACR/DMASR decode at debug level.
func (e *Engine) StatusD2H() { e.logStatus(D2H) }

func (e *Engine) logStatus(dir Direction) {
	cr := e.dmacr(dir)
	sr := e.dmasr(dir)
	entry := e.log.WithFields(logrusFields(dir, cr, sr))
	entry.Debug("axidma channel status")
}
