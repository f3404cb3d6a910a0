package firewall

import "context"

// Rule is one observed ingress rule on a target: a read-only snapshot of
// provider state. CIDR is in wire format (suffix included).
type Rule struct {
	Port     int
	Protocol string
	CIDR     string
}

// AuthorizeOutcome is the result of an authorize call that did not error.
type AuthorizeOutcome int

const (
	// AuthorizeApplied means the rule did not exist and was created.
	AuthorizeApplied AuthorizeOutcome = iota

	// AuthorizeAlreadyExists means the provider reported a duplicate rule.
	// Re-adding an existing rule is a no-op, not an error.
	AuthorizeAlreadyExists
)

// RevokeOutcome is the result of a revoke call that did not error.
type RevokeOutcome int

const (
	// RevokeApplied means the rule existed and was removed.
	RevokeApplied RevokeOutcome = iota

	// RevokeNotFound means the provider had no such rule. The desired end
	// state (rule absent) already holds, so this is a successful no-op.
	RevokeNotFound
)

// CloudFirewallClient is the narrow capability the reconciliation engine
// needs from a cloud provider's control plane: list, add, and revoke
// ingress rules for a security group.
//
// Implementations must map the provider's "duplicate rule" and "rule not
// found" responses onto AuthorizeAlreadyExists and RevokeNotFound rather
// than returning them as errors; the engine's idempotency contract depends
// on that distinction.
type CloudFirewallClient interface {
	// ListIngressRules returns every ingress rule currently attached to
	// the security group. The snapshot is re-fetched on every call; no
	// caching is permitted between mutations and listings.
	ListIngressRules(ctx context.Context, groupID string) ([]Rule, error)

	// AuthorizeIngress adds one ingress rule. cidr is wire format.
	AuthorizeIngress(ctx context.Context, groupID, protocol string, port int, cidr string) (AuthorizeOutcome, error)

	// RevokeIngress removes one ingress rule. cidr is wire format.
	RevokeIngress(ctx context.Context, groupID, protocol string, port int, cidr string) (RevokeOutcome, error)
}
