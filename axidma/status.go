package axidma

import "github.com/sirupsen/logrus"

// logrusFields decodes a DMACR/DMASR pair into structured fields, the
// idiomatic-Go replacement for the original's status_h2d/status_d2h, which
// print!()-ed the same bits to stdout.
func logrusFields(dir Direction, cr, sr uint32) logrus.Fields {
	return logrus.Fields{
		"direction":       dir.String(),
		"running":         cr&dmacrRS != 0,
		"resetting":       cr&dmacrReset != 0,
		"ioc_irq_en":      cr&dmacrIOCIrqEn != 0,
		"dly_irq_en":      cr&dmacrDlyIrqEn != 0,
		"err_irq_en":      cr&dmacrErrIrqEn != 0,
		"halted":          sr&dmasrHalted != 0,
		"idle":            sr&dmasrIdle != 0,
		"scatter_gather":  sr&dmasrSGIncl != 0,
		"dma_int_err":     sr&dmasrDMAIntErr != 0,
		"dma_slv_err":     sr&dmasrDMASlvErr != 0,
		"dma_dec_err":     sr&dmasrDMADecErr != 0,
		"sg_int_err":      sr&dmasrSGIntErr != 0,
		"sg_slv_err":      sr&dmasrSGSlvErr != 0,
		"sg_dec_err":      sr&dmasrSGDecErr != 0,
		"ioc_irq":         sr&dmasrIOCIrq != 0,
		"dly_irq":         sr&dmasrDlyIrq != 0,
		"err_irq":         sr&dmasrErrIrq != 0,
	}
}
