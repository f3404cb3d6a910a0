package firewall

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// AuthorizedEntry is one allow-rule intent: a host address (or the
// any-source sentinel) plus its operator-facing description.
type AuthorizedEntry struct {
	CIDR        string
	Description string
}

// QueryError means listing a target's live rules failed. It is fatal for
// that target's reconciliation but must not abort other queued targets.
type QueryError struct {
	Target string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query ingress rules for %s: %v", e.Target, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MutationError records a single failed add or revoke call. Mutation
// failures are collected, not propagated: the batch continues and the
// operator reviews the summary.
type MutationError struct {
	Target string
	CIDR   string
	Port   int
	Op     string // "authorize" or "revoke"
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s port %d for %s on %s: %v", e.Op, e.Port, e.CIDR, e.Target, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// ApplyResult is the per-entry outcome of AddEntry or ConfigurePublicPorts.
// OK is true only when every port either newly succeeded or already
// existed. A false OK is non-fatal: the failed ports are recorded and the
// run continues.
type ApplyResult struct {
	CIDR          string
	Description   string
	AppliedPorts  []int
	ExistingPorts []int
	FailedPorts   []int
	Errors        []*MutationError
}

// OK reports whether every port call succeeded or was already in place.
func (r *ApplyResult) OK() bool { return len(r.FailedPorts) == 0 }

// RemovalResult is the per-CIDR outcome of RemoveEntries.
type RemovalResult struct {
	CIDR         string
	RevokedPorts []int
	MissingPorts []int // rule was already absent; successful no-op
	FailedPorts  []int
	Errors       []*MutationError
}

// Report summarises a reconciliation run for operator review. It is always
// produced, even when some mutations failed, so the operator can see
// exactly what state the target ended in.
type Report struct {
	Target       string
	Added        []ApplyResult
	Removed      []RemovalResult
	PublicResult *ApplyResult

	// PortsByCIDR is the post-reconciliation live state: for each source,
	// the ports it can reach. Keys are host form except the any-source
	// wire form 0.0.0.0/0.
	PortsByCIDR map[string][]int
}

// Engine brings a target's live ingress rules into agreement with a
// desired set of authorized entries. All provider calls are sequential and
// best-effort: nothing is retried, and one port's failure never aborts the
// remaining ports or CIDRs. Operators re-run on partial failure; the
// idempotent add/revoke semantics make re-runs safe.
type Engine struct {
	client CloudFirewallClient
	out    io.Writer
}

// NewEngine returns an engine writing per-item progress markers to out.
// Pass io.Discard (or nil) to silence them.
func NewEngine(client CloudFirewallClient, out io.Writer) *Engine {
	if out == nil {
		out = io.Discard
	}
	return &Engine{client: client, out: out}
}

// ListCurrentState fetches the target's live ingress rules, filters them to
// the target's configured TCP ports, and groups reachable ports by source.
// Single-host /32 suffixes are stripped from the keys; the any-source /0
// form is kept verbatim. An empty result means "no rules yet", not an
// error.
func (e *Engine) ListCurrentState(ctx context.Context, target *Target) (map[string]map[int]bool, error) {
	rules, err := e.client.ListIngressRules(ctx, target.ID)
	if err != nil {
		return nil, &QueryError{Target: target.DisplayName, Err: err}
	}

	state := make(map[string]map[int]bool)
	for _, r := range rules {
		if r.Protocol != "tcp" || !target.HasPort(r.Port) {
			continue
		}
		key := HostForm(r.CIDR)
		if state[key] == nil {
			state[key] = make(map[int]bool)
		}
		state[key][r.Port] = true
	}
	return state, nil
}

// AddEntry authorizes ingress on every one of the target's ports for the
// given host address. A "rule already exists" response from the provider
// counts as success for that port.
func (e *Engine) AddEntry(ctx context.Context, target *Target, cidr, description string) ApplyResult {
	return e.applyPorts(ctx, target, cidr, description, target.PortNumbers())
}

// ConfigurePublicPorts opens each of the target's public ports to any
// source, unconditionally and independently of the allow list: browser
// clients have no fixed source address to enumerate. Idempotent for the
// same reason AddEntry is.
func (e *Engine) ConfigurePublicPorts(ctx context.Context, target *Target) ApplyResult {
	return e.applyPorts(ctx, target, AnySource, "public", target.PublicPorts)
}

func (e *Engine) applyPorts(ctx context.Context, target *Target, cidr, description string, ports []int) ApplyResult {
	res := ApplyResult{CIDR: cidr, Description: description}
	wire := WireFormat(cidr)
	for _, port := range ports {
		outcome, err := e.client.AuthorizeIngress(ctx, target.ID, "tcp", port, wire)
		if err != nil {
			merr := &MutationError{Target: target.DisplayName, CIDR: cidr, Port: port, Op: "authorize", Err: err}
			res.FailedPorts = append(res.FailedPorts, port)
			res.Errors = append(res.Errors, merr)
			fmt.Fprintf(e.out, "  ✗ %s port %d: %v\n", wire, port, err)
			continue
		}
		if outcome == AuthorizeAlreadyExists {
			res.ExistingPorts = append(res.ExistingPorts, port)
			fmt.Fprintf(e.out, "  ✓ %s port %d (already authorized)\n", wire, port)
		} else {
			res.AppliedPorts = append(res.AppliedPorts, port)
			fmt.Fprintf(e.out, "  ✓ %s port %d authorized\n", wire, port)
		}
	}
	return res
}

// RemoveEntries revokes every one of the target's ports for each given
// host address. The wire-format rule is identical to AddEntry's: the
// any-source sentinel is branched on before any suffix handling. A "rule
// not found" response is a successful no-op, logged informationally.
func (e *Engine) RemoveEntries(ctx context.Context, target *Target, cidrs []string) []RemovalResult {
	results := make([]RemovalResult, 0, len(cidrs))
	for _, cidr := range cidrs {
		res := RemovalResult{CIDR: cidr}
		wire := WireFormat(cidr)
		for _, port := range target.PortNumbers() {
			outcome, err := e.client.RevokeIngress(ctx, target.ID, "tcp", port, wire)
			if err != nil {
				merr := &MutationError{Target: target.DisplayName, CIDR: cidr, Port: port, Op: "revoke", Err: err}
				res.FailedPorts = append(res.FailedPorts, port)
				res.Errors = append(res.Errors, merr)
				fmt.Fprintf(e.out, "  ✗ %s port %d: %v\n", wire, port, err)
				continue
			}
			if outcome == RevokeNotFound {
				res.MissingPorts = append(res.MissingPorts, port)
				fmt.Fprintf(e.out, "  · %s port %d was not present\n", wire, port)
			} else {
				res.RevokedPorts = append(res.RevokedPorts, port)
				fmt.Fprintf(e.out, "  ✓ %s port %d revoked\n", wire, port)
			}
		}
		results = append(results, res)
	}
	return results
}

// Reconcile orchestrates a full pass over one target: requested removals
// first, then any desired entry not already fully covered by live rules,
// then the public ports. The returned Report is always non-nil when the
// initial state listing succeeds; a nil Report with a QueryError means the
// target could not be reconciled at all.
func (e *Engine) Reconcile(ctx context.Context, target *Target, desired []AuthorizedEntry, removals []string) (*Report, error) {
	report := &Report{Target: target.DisplayName}

	if len(removals) > 0 {
		fmt.Fprintf(e.out, "Removing %d authorized source(s) from %s\n", len(removals), target.DisplayName)
		report.Removed = e.RemoveEntries(ctx, target, removals)
	}

	state, err := e.ListCurrentState(ctx, target)
	if err != nil {
		return nil, err
	}

	for _, entry := range desired {
		if covered(state[stateKey(entry.CIDR)], target.PortNumbers()) {
			fmt.Fprintf(e.out, "  · %s already fully authorized\n", entry.CIDR)
			continue
		}
		fmt.Fprintf(e.out, "Authorizing %s (%s) on %s\n", entry.CIDR, entry.Description, target.DisplayName)
		report.Added = append(report.Added, e.AddEntry(ctx, target, entry.CIDR, entry.Description))
	}

	if len(target.PublicPorts) > 0 {
		fmt.Fprintf(e.out, "Opening public ports on %s\n", target.DisplayName)
		res := e.ConfigurePublicPorts(ctx, target)
		report.PublicResult = &res
	}

	// Re-fetch so the summary reflects what the provider actually holds,
	// not what we believe we just wrote. A listing failure here still
	// yields the mutation results gathered so far.
	final, err := e.ListCurrentState(ctx, target)
	if err != nil {
		return report, err
	}
	report.PortsByCIDR = flattenState(final)
	return report, nil
}

// covered reports whether every required port is present in the live port
// set for one source.
func covered(livePorts map[int]bool, required []int) bool {
	if livePorts == nil {
		return false
	}
	for _, p := range required {
		if !livePorts[p] {
			return false
		}
	}
	return true
}

// flattenState converts the grouped live state into sorted port slices for
// display.
func flattenState(state map[string]map[int]bool) map[string][]int {
	out := make(map[string][]int, len(state))
	for cidr, ports := range state {
		nums := make([]int, 0, len(ports))
		for p := range ports {
			nums = append(nums, p)
		}
		sort.Ints(nums)
		out[cidr] = nums
	}
	return out
}
