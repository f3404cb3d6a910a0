package firewall

import "fmt"

// TargetKind identifies which deployment host a firewall target fronts.
type TargetKind string

const (
	// KindGPU is the GPU inference server running the ASR model container.
	KindGPU TargetKind = "gpu"

	// KindBuildbox is the CPU build host that compiles model artifacts.
	KindBuildbox TargetKind = "buildbox"

	// KindCustom is a target whose port set comes from a deployment
	// manifest rather than the built-in defaults.
	KindCustom TargetKind = "custom"
)

// Port is one TCP port a target must accept, with its operator-facing label.
type Port struct {
	Number      int
	Description string
}

// Target is a named firewall scope managed as a unit. It maps to one cloud
// security group. Targets are built once at startup and never mutated during
// a run.
type Target struct {
	// ID is the opaque security group identifier used by the cloud API.
	ID string

	// DisplayName is the human-readable name shown in prompts and reports.
	DisplayName string

	Kind TargetKind

	// Ports is the ordered list of TCP ports the target requires for
	// allow-listed sources.
	Ports []Port

	// PublicPorts are ports intentionally opened to any source. Browser
	// clients of the WebSocket audio bridge have no fixed source address,
	// so these cannot be allow-listed. Must be a subset of Ports.
	PublicPorts []int
}

// GPUTarget returns the default GPU inference server target: SSH for
// operations, gRPC for the ASR streaming API, HTTP for the health endpoint,
// and the WebSocket bridge port open to browsers.
func GPUTarget(groupID string) *Target {
	return &Target{
		ID:          groupID,
		DisplayName: "GPU inference server",
		Kind:        KindGPU,
		Ports: []Port{
			{Number: 22, Description: "SSH"},
			{Number: 50051, Description: "gRPC ASR streaming"},
			{Number: 8000, Description: "HTTP health/API"},
			{Number: 8443, Description: "WebSocket audio bridge"},
		},
		PublicPorts: []int{8443},
	}
}

// BuildboxTarget returns the default build host target.
func BuildboxTarget(groupID string) *Target {
	return &Target{
		ID:          groupID,
		DisplayName: "build box",
		Kind:        KindBuildbox,
		Ports: []Port{
			{Number: 22, Description: "SSH"},
			{Number: 8080, Description: "artifact cache HTTP"},
		},
	}
}

// PortNumbers returns the target's port numbers in configuration order.
func (t *Target) PortNumbers() []int {
	nums := make([]int, len(t.Ports))
	for i, p := range t.Ports {
		nums[i] = p.Number
	}
	return nums
}

// HasPort reports whether n is one of the target's configured ports.
func (t *Target) HasPort(n int) bool {
	for _, p := range t.Ports {
		if p.Number == n {
			return true
		}
	}
	return false
}

// Validate checks the target invariants: an ID, at least one port, and
// every public port present in the port list.
func (t *Target) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("target %q has no security group ID", t.DisplayName)
	}
	if len(t.Ports) == 0 {
		return fmt.Errorf("target %q has no ports configured", t.DisplayName)
	}
	for _, pub := range t.PublicPorts {
		if !t.HasPort(pub) {
			return fmt.Errorf("target %q: public port %d is not in the port list", t.DisplayName, pub)
		}
	}
	return nil
}
