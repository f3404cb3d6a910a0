// Package config loads the shared deployment configuration file
// (deploy.conf) that drives every asrctl command: region, security group
// identifiers, per-target port lists, and artifact storage coordinates.
// The file is flat KEY=value text shared with the deployment shell
// scripts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/voxlane/asrctl/internal/envfile"
	"github.com/voxlane/asrctl/internal/firewall"
)

// Configuration keys read from deploy.conf. Port list keys are optional;
// built-in defaults apply when absent.
const (
	KeyRegion            = "AWS_REGION"
	KeyGPUGroup          = "GPU_SECURITY_GROUP"
	KeyBuildboxGroup     = "BUILDBOX_SECURITY_GROUP"
	KeyModelBucket       = "MODEL_BUCKET"
	KeyModelPrefix       = "MODEL_PREFIX"
	KeyHealthURL         = "HEALTH_URL"
	keyPortsSuffix       = "_PORTS"
	keyPortDescsSuffix   = "_PORT_DESCRIPTIONS"
	keyPublicPortsSuffix = "_PUBLIC_PORTS"
)

// authConfiguredKey mirrors authstore.KeyConfigured without importing the
// store package.
const authConfiguredKey = "SECURITY_CONFIGURED"

// MissingKeyError reports a required configuration field that is absent.
// It is fatal: the operator must fill in the field and re-run.
type MissingKeyError struct {
	Path string
	Key  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: required key %s is not set", e.Path, e.Key)
}

// DeployConfig is the loaded deployment configuration.
type DeployConfig struct {
	Path                  string
	Region                string
	GPUSecurityGroup      string
	BuildboxSecurityGroup string
	ModelBucket           string
	ModelPrefix           string
	HealthURL             string
	SecurityConfigured    bool

	file *envfile.File
}

// DefaultPath returns the deploy.conf location: $ASRCTL_DEPLOY_CONF when
// set, otherwise ./deploy.conf.
func DefaultPath() string {
	if p := os.Getenv("ASRCTL_DEPLOY_CONF"); p != "" {
		return p
	}
	return "deploy.conf"
}

// Load reads deploy.conf from path. A missing file is fatal: every command
// needs at least the region and one security group identifier.
func Load(path string) (*DeployConfig, error) {
	f, err := envfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load deployment config %s: %w", path, err)
	}

	cfg := &DeployConfig{Path: path, file: f}
	cfg.Region, _ = f.Lookup(KeyRegion)
	cfg.GPUSecurityGroup, _ = f.Lookup(KeyGPUGroup)
	cfg.BuildboxSecurityGroup, _ = f.Lookup(KeyBuildboxGroup)
	cfg.ModelBucket, _ = f.Lookup(KeyModelBucket)
	cfg.ModelPrefix, _ = f.Lookup(KeyModelPrefix)
	cfg.HealthURL, _ = f.Lookup(KeyHealthURL)
	if v, ok := f.Lookup(authConfiguredKey); ok {
		cfg.SecurityConfigured = v == "true"
	}

	if cfg.Region == "" {
		return nil, &MissingKeyError{Path: path, Key: KeyRegion}
	}
	return cfg, nil
}

// TargetFor builds the firewall target for the given kind, starting from
// the built-in port defaults and applying any per-target overrides present
// in deploy.conf (<KIND>_PORTS, <KIND>_PORT_DESCRIPTIONS,
// <KIND>_PUBLIC_PORTS as parallel comma-separated lists).
func (c *DeployConfig) TargetFor(kind firewall.TargetKind) (*firewall.Target, error) {
	var target *firewall.Target
	var prefix string

	switch kind {
	case firewall.KindGPU:
		if c.GPUSecurityGroup == "" {
			return nil, &MissingKeyError{Path: c.Path, Key: KeyGPUGroup}
		}
		target = firewall.GPUTarget(c.GPUSecurityGroup)
		prefix = "GPU"
	case firewall.KindBuildbox:
		if c.BuildboxSecurityGroup == "" {
			return nil, &MissingKeyError{Path: c.Path, Key: KeyBuildboxGroup}
		}
		target = firewall.BuildboxTarget(c.BuildboxSecurityGroup)
		prefix = "BUILDBOX"
	default:
		return nil, fmt.Errorf("no built-in target for kind %q", kind)
	}

	if err := c.applyPortOverrides(target, prefix); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return target, nil
}

func (c *DeployConfig) applyPortOverrides(target *firewall.Target, prefix string) error {
	portsCSV, havePorts := c.file.Lookup(prefix + keyPortsSuffix)
	if havePorts {
		descsCSV, _ := c.file.Lookup(prefix + keyPortDescsSuffix)
		ports, err := parsePorts(portsCSV, descsCSV)
		if err != nil {
			return fmt.Errorf("%s: %s%s: %w", c.Path, prefix, keyPortsSuffix, err)
		}
		target.Ports = ports
	}

	publicCSV, havePublic := c.file.Lookup(prefix + keyPublicPortsSuffix)
	if havePublic {
		public, err := parsePortNumbers(publicCSV)
		if err != nil {
			return fmt.Errorf("%s: %s%s: %w", c.Path, prefix, keyPublicPortsSuffix, err)
		}
		target.PublicPorts = public
	}
	return nil
}

// parsePorts pairs a comma-separated port list with its parallel
// description list, index for index. Missing descriptions become empty
// labels rather than errors.
func parsePorts(portsCSV, descsCSV string) ([]firewall.Port, error) {
	nums, err := parsePortNumbers(portsCSV)
	if err != nil {
		return nil, err
	}
	descs := splitCSV(descsCSV)

	ports := make([]firewall.Port, len(nums))
	for i, n := range nums {
		desc := ""
		if i < len(descs) {
			desc = descs[i]
		}
		ports[i] = firewall.Port{Number: n, Description: desc}
	}
	return ports, nil
}

func parsePortNumbers(csv string) ([]int, error) {
	var nums []int
	for _, part := range splitCSV(csv) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		if n < 1 || n > 65535 {
			return nil, fmt.Errorf("port %d out of range", n)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func splitCSV(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
