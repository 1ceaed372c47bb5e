// Package config loads the static topology of an AXI-DMA deployment — which
// UIO device backs the engine, which u-dma-buf regions are available, and
// how big a descriptor ring each channel should use — from a TOML file.
//
// None of this is discoverable from the hardware itself (a UIO/u-dma-buf
// pair carries no notion of "this is the AXI-DMA loopback buffer" versus
// "this is something else"), so it is left to deployment-time
// configuration, the same role BurntSushi/toml plays for the rest of the
// Go ecosystem's infra tooling.
package config
