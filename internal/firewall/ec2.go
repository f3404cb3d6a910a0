package firewall

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// EC2 error codes that encode idempotent no-ops rather than failures.
const (
	errCodeDuplicateRule = "InvalidPermission.Duplicate"
	errCodeRuleNotFound  = "InvalidPermission.NotFound"
)

// ec2APIClient is the narrow EC2 interface used by the firewall client.
// Only security group describe/authorize/revoke calls are required.
type ec2APIClient interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2svc.DescribeSecurityGroupsInput, optFns ...func(*ec2svc.Options)) (*ec2svc.DescribeSecurityGroupsOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2svc.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2svc.Options)) (*ec2svc.AuthorizeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupIngress(ctx context.Context, params *ec2svc.RevokeSecurityGroupIngressInput, optFns ...func(*ec2svc.Options)) (*ec2svc.RevokeSecurityGroupIngressOutput, error)
}

// EC2FirewallClient implements CloudFirewallClient against EC2 security
// groups using the AWS SDK v2.
type EC2FirewallClient struct {
	api ec2APIClient
}

// NewEC2FirewallClient returns a client backed by the real EC2 SDK client
// built from cfg.
func NewEC2FirewallClient(cfg aws.Config) *EC2FirewallClient {
	return &EC2FirewallClient{api: ec2svc.NewFromConfig(cfg)}
}

// NewEC2FirewallClientWithAPI returns a client that uses the supplied API
// implementation. Pass a fake in unit tests.
func NewEC2FirewallClientWithAPI(api ec2APIClient) *EC2FirewallClient {
	return &EC2FirewallClient{api: api}
}

// ListIngressRules fetches the security group and flattens its IP
// permissions into one Rule per (port, CIDR) pair.
func (c *EC2FirewallClient) ListIngressRules(ctx context.Context, groupID string) ([]Rule, error) {
	out, err := c.api.DescribeSecurityGroups(ctx, &ec2svc.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		return nil, fmt.Errorf("describe security group %s: %w", groupID, err)
	}

	var rules []Rule
	for _, sg := range out.SecurityGroups {
		for _, perm := range sg.IpPermissions {
			port := 0
			if perm.FromPort != nil {
				port = int(aws.ToInt32(perm.FromPort))
			}
			proto := aws.ToString(perm.IpProtocol)
			for _, ipRange := range perm.IpRanges {
				rules = append(rules, Rule{
					Port:     port,
					Protocol: proto,
					CIDR:     aws.ToString(ipRange.CidrIp),
				})
			}
		}
	}
	return rules, nil
}

// AuthorizeIngress adds one ingress rule. A provider "duplicate rule"
// response is reported as AuthorizeAlreadyExists, not an error.
func (c *EC2FirewallClient) AuthorizeIngress(ctx context.Context, groupID, protocol string, port int, cidr string) (AuthorizeOutcome, error) {
	_, err := c.api.AuthorizeSecurityGroupIngress(ctx, &ec2svc.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{ipPermission(protocol, port, cidr)},
	})
	if err != nil {
		if hasErrorCode(err, errCodeDuplicateRule) {
			return AuthorizeAlreadyExists, nil
		}
		return 0, fmt.Errorf("authorize %s port %d from %s on %s: %w", protocol, port, cidr, groupID, err)
	}
	return AuthorizeApplied, nil
}

// RevokeIngress removes one ingress rule. A provider "rule not found"
// response is reported as RevokeNotFound, not an error.
func (c *EC2FirewallClient) RevokeIngress(ctx context.Context, groupID, protocol string, port int, cidr string) (RevokeOutcome, error) {
	_, err := c.api.RevokeSecurityGroupIngress(ctx, &ec2svc.RevokeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{ipPermission(protocol, port, cidr)},
	})
	if err != nil {
		if hasErrorCode(err, errCodeRuleNotFound) {
			return RevokeNotFound, nil
		}
		return 0, fmt.Errorf("revoke %s port %d from %s on %s: %w", protocol, port, cidr, groupID, err)
	}
	return RevokeApplied, nil
}

// ipPermission builds the single-port, single-range permission block used
// by both authorize and revoke so the two paths can never drift apart.
func ipPermission(protocol string, port int, cidr string) ec2types.IpPermission {
	return ec2types.IpPermission{
		IpProtocol: aws.String(protocol),
		FromPort:   aws.Int32(int32(port)),
		ToPort:     aws.Int32(int32(port)),
		IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(cidr)}},
	}
}

// hasErrorCode reports whether err is a smithy API error with the given code.
func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
