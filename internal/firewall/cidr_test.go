package firewall

import "testing"

func TestWireFormat_SingleHost(t *testing.T) {
	if got := WireFormat("203.0.113.5"); got != "203.0.113.5/32" {
		t.Fatalf("expected 203.0.113.5/32, got %s", got)
	}
}

func TestWireFormat_AnySentinel(t *testing.T) {
	// The any check must run before any suffix handling: 0.0.0.0 must
	// never come out as 0.0.0.0/32.
	if got := WireFormat(AnySource); got != AnyWire {
		t.Fatalf("expected %s, got %s", AnyWire, got)
	}
	if got := WireFormat(AnyWire); got != AnyWire {
		t.Fatalf("expected %s unchanged, got %s", AnyWire, got)
	}
}

func TestHostForm(t *testing.T) {
	if got := HostForm("203.0.113.5/32"); got != "203.0.113.5" {
		t.Fatalf("expected /32 stripped, got %s", got)
	}
	if got := HostForm(AnyWire); got != AnyWire {
		t.Fatalf("expected /0 untouched, got %s", got)
	}
	if got := HostForm("203.0.113.5"); got != "203.0.113.5" {
		t.Fatalf("expected bare host unchanged, got %s", got)
	}
}

func TestValidHost(t *testing.T) {
	valid := []string{"203.0.113.5", "0.0.0.0", "10.0.0.1"}
	for _, s := range valid {
		if !ValidHost(s) {
			t.Fatalf("expected %q valid", s)
		}
	}

	// Octet values are deliberately not range-checked; the historical
	// pattern accepts any 1-3 digit group.
	if !ValidHost("999.999.999.999") {
		t.Fatalf("expected lax pattern to accept 999.999.999.999")
	}

	invalid := []string{"", "any", "203.0.113", "203.0.113.5/32", "1234.0.0.1", "a.b.c.d"}
	for _, s := range invalid {
		if ValidHost(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}
