package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookup(t *testing.T) {
	path := writeFile(t, `# deployment settings
AWS_REGION=eu-west-1
GPU_SECURITY_GROUP="sg-123"
EMPTY=
QUOTED='single'
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]string{
		"AWS_REGION":         "eu-west-1",
		"GPU_SECURITY_GROUP": "sg-123",
		"EMPTY":              "",
		"QUOTED":             "single",
	}
	for key, want := range cases {
		got, ok := f.Lookup(key)
		if !ok {
			t.Fatalf("key %s not found", key)
		}
		if got != want {
			t.Fatalf("key %s: expected %q, got %q", key, want, got)
		}
	}

	if _, ok := f.Lookup("MISSING"); ok {
		t.Fatalf("expected MISSING absent")
	}
}

func TestLookup_LastOccurrenceWins(t *testing.T) {
	path := writeFile(t, "KEY=first\nKEY=second\n")
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Lookup("KEY"); got != "second" {
		t.Fatalf("expected last occurrence, got %q", got)
	}
}

func TestSet_OverwritesInPlace(t *testing.T) {
	path := writeFile(t, `# header comment
AWS_REGION=eu-west-1
AUTHORIZED_IPS_LIST="203.0.113.5"

OTHER=untouched
`)
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	f.Set("AUTHORIZED_IPS_LIST", "203.0.113.5 198.51.100.1")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if strings.Count(content, "AUTHORIZED_IPS_LIST") != 1 {
		t.Fatalf("key duplicated:\n%s", content)
	}
	if !strings.Contains(content, "# header comment") {
		t.Fatalf("comment line lost:\n%s", content)
	}
	if !strings.Contains(content, "OTHER=untouched") {
		t.Fatalf("unrelated line lost:\n%s", content)
	}
	if !strings.Contains(content, `AUTHORIZED_IPS_LIST="203.0.113.5 198.51.100.1"`) {
		t.Fatalf("value not updated:\n%s", content)
	}
}

func TestSet_AppendsWhenAbsent(t *testing.T) {
	path := writeFile(t, "AWS_REGION=eu-west-1\n")
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	f.Set("SECURITY_CONFIGURED", "true")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	f2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := f2.Lookup("SECURITY_CONFIGURED"); !ok || got != "true" {
		t.Fatalf("appended key not readable, got %q ok=%v", got, ok)
	}
	if got, _ := f2.Lookup("AWS_REGION"); got != "eu-west-1" {
		t.Fatalf("existing key damaged: %q", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadOrEmpty_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.conf")
	f, err := LoadOrEmpty(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.Set("KEY", "value")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	f2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := f2.Lookup("KEY"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestSave_RoundTripStable(t *testing.T) {
	original := "# comment\nA=1\nB=\"two\"\n"
	path := writeFile(t, original)
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Fatalf("round trip modified file:\n%q\n->\n%q", original, string(data))
	}
}
