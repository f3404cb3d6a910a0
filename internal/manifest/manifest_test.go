package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asr.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeManifest(t, `
version: 1
targets:
  - name: transcoder
    security_group: sg-ccc
    ports:
      - port: 22
        description: SSH
      - port: 7000
        description: transcode API
    public_ports: [7000]
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target, err := m.Target("transcoder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.ID != "sg-ccc" {
		t.Fatalf("wrong group: %s", target.ID)
	}
	if len(target.Ports) != 2 || target.Ports[1].Number != 7000 {
		t.Fatalf("ports not loaded: %+v", target.Ports)
	}
	if len(target.PublicPorts) != 1 || target.PublicPorts[0] != 7000 {
		t.Fatalf("public ports not loaded: %v", target.PublicPorts)
	}
}

func TestLoad_InvalidVersion(t *testing.T) {
	path := writeManifest(t, "version: 2\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestLoad_PublicPortOutsidePortList(t *testing.T) {
	path := writeManifest(t, `
version: 1
targets:
  - name: bad
    security_group: sg-ccc
    ports:
      - port: 22
    public_ports: [443]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestTarget_Unknown(t *testing.T) {
	path := writeManifest(t, `
version: 1
targets:
  - name: transcoder
    security_group: sg-ccc
    ports:
      - port: 22
`)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Target("nope"); err == nil {
		t.Fatalf("expected error for unknown target")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
