package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadAllMergesIncludesAndConfDir(t *testing.T) {
	dir := t.TempDir()
	confDir := filepath.Join(dir, "conf.d")
	if err := os.Mkdir(confDir, 0o755); err != nil {
		t.Fatal(err)
	}

	main := writeFile(t, dir, "gateway.yaml", `
gateway:
  name: test-gw
  loglevel: debug
includes:
  - devices.yaml
connectors:
  broker:
    type: mqtt
    params:
      url: tcp://localhost:1883
bridges:
  main:
    from: broker
    to: broker
`)
	writeFile(t, dir, "devices.yaml", `
connectors:
  spi0:
    type: spi
    params:
      device: /dev/spidev0.0
`)
	writeFile(t, confDir, "01-extra.yaml", `
connectors:
  uart0:
    type: uart
    params:
      device: /dev/ttyUSB0
`)
	writeFile(t, confDir, "02-override.yaml", `
bridges:
  main:
    from: spi0
    to: broker
`)

	cfg, err := LoadAll(main, confDir)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if cfg.Gateway.Name != "test-gw" {
		t.Errorf("gateway name = %q, want test-gw", cfg.Gateway.Name)
	}
	if len(cfg.Connectors) != 3 {
		t.Errorf("connectors = %d, want 3", len(cfg.Connectors))
	}
	if got := cfg.Bridges["main"].From; got != "spi0" {
		t.Errorf("bridge main.From = %q, want spi0 (confdir override should win)", got)
	}
}

func TestLoadAllMissingConfDirIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "gateway.yaml", `
gateway:
  name: test-gw
connectors:
  broker:
    type: mqtt
bridges:
  main:
    from: broker
    to: broker
`)

	if _, err := LoadAll(main, filepath.Join(dir, "does-not-exist")); err != nil {
		t.Fatalf("LoadAll() with missing confdir: %v", err)
	}
}

func TestValidateRejectsUnknownConnector(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "gateway.yaml", `
gateway:
  name: test-gw
connectors:
  broker:
    type: mqtt
bridges:
  main:
    from: broker
    to: nonexistent
`)

	if _, err := LoadAll(main, ""); err == nil {
		t.Error("expected validate() to reject a bridge naming an unknown connector")
	}
}

func TestConfDirOrderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	confDir := filepath.Join(dir, "conf.d")
	if err := os.Mkdir(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	main := writeFile(t, dir, "gateway.yaml", `
gateway:
  name: test-gw
connectors:
  broker:
    type: mqtt
bridges:
  main:
    from: broker
    to: broker
`)
	writeFile(t, confDir, "b-second.yaml", "connectors:\n  second:\n    type: mqtt\nbridges:\n  main:\n    from: second\n    to: broker\n")
	writeFile(t, confDir, "a-first.yaml", "connectors:\n  first:\n    type: mqtt\nbridges:\n  main:\n    from: first\n    to: broker\n")

	cfg, err := LoadAll(main, confDir)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if got := cfg.Bridges["main"].From; got != "second" {
		t.Errorf("bridge main.From = %q, want second (fragments merge in sorted filename order)", got)
	}
}
