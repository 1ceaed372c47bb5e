package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
[engine]
uio = "uio0"
h2d_ring_size = 16
d2h_ring_size = 16

[buffers.tx]
name = "udmabuf0"
direction = "h2d"

[buffers.rx]
name = "udmabuf1"
direction = "d2h"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.UIO != "uio0" {
		t.Errorf("Engine.UIO = %q, want uio0", c.Engine.UIO)
	}
	if got := c.Buffers["tx"].Name; got != "udmabuf0" {
		t.Errorf("Buffers[tx].Name = %q, want udmabuf0", got)
	}
}

func TestLoadMissingUIO(t *testing.T) {
	path := writeConfig(t, `
[engine]
h2d_ring_size = 4
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil, want error for missing engine.uio")
	}
}

func TestLoadBadDirection(t *testing.T) {
	path := writeConfig(t, `
[engine]
uio = "uio0"

[buffers.tx]
name = "udmabuf0"
direction = "sideways"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil, want error for invalid buffer direction")
	}
}
