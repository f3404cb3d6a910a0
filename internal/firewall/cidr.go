package firewall

import (
	"regexp"
	"strings"
)

// AnySource is the sentinel host value meaning "any source address".
// On the wire it is always rendered as AnyWire, never with a /32 suffix.
const AnySource = "0.0.0.0"

// AnyWire is the wire-format CIDR for the any-source sentinel.
const AnyWire = "0.0.0.0/0"

// cidrPattern matches dotted-quad input the same way the original tooling
// did: one to three digits per octet, no range check. "999.999.999.999"
// passes. Kept as-is so existing operator inputs keep validating.
var cidrPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ValidHost reports whether s is an acceptable host address for an
// authorized entry: a dotted quad or the any-source sentinel.
func ValidHost(s string) bool {
	return cidrPattern.MatchString(s)
}

// WireFormat renders a stored host address as the CIDR sent to the cloud
// API. The any-source sentinel MUST be checked before any suffix handling:
// appending /32 to 0.0.0.0 would silently turn "everyone" into "nobody".
func WireFormat(host string) string {
	if host == AnySource || host == AnyWire {
		return AnyWire
	}
	return host + "/32"
}

// HostForm converts a wire-format CIDR back to its stored host form.
// Single-host /32 suffixes are stripped; the /0 any-source form is kept
// verbatim because it is semantically distinct from any single host.
func HostForm(wire string) string {
	if wire == AnyWire {
		return wire
	}
	return strings.TrimSuffix(wire, "/32")
}

// stateKey returns the key under which a host address appears in a
// live-state mapping produced by ListCurrentState.
func stateKey(host string) string {
	if host == AnySource {
		return AnyWire
	}
	return host
}
