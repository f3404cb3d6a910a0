package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxlane/asrctl/internal/firewall"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConf(t, `AWS_REGION=eu-west-1
GPU_SECURITY_GROUP=sg-aaa
BUILDBOX_SECURITY_GROUP=sg-bbb
MODEL_BUCKET=voxlane-models
MODEL_PREFIX=whisper-large
HEALTH_URL=http://10.0.0.5:8000/health
SECURITY_CONFIGURED="true"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Fatalf("region: %q", cfg.Region)
	}
	if cfg.GPUSecurityGroup != "sg-aaa" || cfg.BuildboxSecurityGroup != "sg-bbb" {
		t.Fatalf("groups: %q %q", cfg.GPUSecurityGroup, cfg.BuildboxSecurityGroup)
	}
	if cfg.ModelBucket != "voxlane-models" || cfg.ModelPrefix != "whisper-large" {
		t.Fatalf("artifacts: %q %q", cfg.ModelBucket, cfg.ModelPrefix)
	}
	if !cfg.SecurityConfigured {
		t.Fatalf("expected SecurityConfigured true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_MissingRegion(t *testing.T) {
	path := writeConf(t, "GPU_SECURITY_GROUP=sg-aaa\n")
	_, err := Load(path)

	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if missing.Key != KeyRegion {
		t.Fatalf("expected missing %s, got %s", KeyRegion, missing.Key)
	}
}

func TestTargetFor_GPUDefaults(t *testing.T) {
	path := writeConf(t, "AWS_REGION=eu-west-1\nGPU_SECURITY_GROUP=sg-aaa\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	target, err := cfg.TargetFor(firewall.KindGPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.ID != "sg-aaa" || target.Kind != firewall.KindGPU {
		t.Fatalf("unexpected target: %+v", target)
	}
	if !target.HasPort(22) || !target.HasPort(50051) {
		t.Fatalf("default GPU ports missing: %v", target.PortNumbers())
	}
}

func TestTargetFor_PortOverrides(t *testing.T) {
	path := writeConf(t, `AWS_REGION=eu-west-1
GPU_SECURITY_GROUP=sg-aaa
GPU_PORTS=22,9000
GPU_PORT_DESCRIPTIONS=SSH,Custom
GPU_PUBLIC_PORTS=9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	target, err := cfg.TargetFor(firewall.KindGPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(target.Ports) != 2 {
		t.Fatalf("expected 2 ports, got %v", target.Ports)
	}
	if target.Ports[1].Number != 9000 || target.Ports[1].Description != "Custom" {
		t.Fatalf("override not applied: %+v", target.Ports[1])
	}
	if len(target.PublicPorts) != 1 || target.PublicPorts[0] != 9000 {
		t.Fatalf("public override not applied: %v", target.PublicPorts)
	}
}

func TestTargetFor_PublicPortNotInList(t *testing.T) {
	path := writeConf(t, `AWS_REGION=eu-west-1
GPU_SECURITY_GROUP=sg-aaa
GPU_PORTS=22
GPU_PUBLIC_PORTS=9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.TargetFor(firewall.KindGPU); err == nil {
		t.Fatalf("expected validation error for public port outside port list")
	}
}

func TestTargetFor_MissingGroup(t *testing.T) {
	path := writeConf(t, "AWS_REGION=eu-west-1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	_, err = cfg.TargetFor(firewall.KindBuildbox)
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
}

func TestTargetFor_InvalidPort(t *testing.T) {
	path := writeConf(t, "AWS_REGION=eu-west-1\nGPU_SECURITY_GROUP=sg-aaa\nGPU_PORTS=22,zap\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.TargetFor(firewall.KindGPU); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}
