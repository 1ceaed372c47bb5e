// Package barrier provides the one primitive that binds the CPU's view of
// DMA-coherent memory to the AXI-DMA engine's view of the same memory: a
// full data memory barrier.
//
// The Zynq/MPSoC CPU and the AXI-DMA engine both address DDR directly, but
// they do not share cache coherency over the path this library uses (no
// ACP/ACE snooping is assumed). A CPU store that fills a buffer or updates a
// Scatter-Gather descriptor may still be sitting in a store buffer, not yet
// visible in DRAM, when the DMA is told to start fetching from the same
// address. Barrier closes that window.
package barrier
