package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/voxlane/asrctl/internal/authstore"
	"github.com/voxlane/asrctl/internal/config"
	"github.com/voxlane/asrctl/internal/firewall"
	"github.com/voxlane/asrctl/internal/manifest"
	"github.com/voxlane/asrctl/internal/output"
	"github.com/voxlane/asrctl/internal/prompt"
	"github.com/voxlane/asrctl/internal/providers/aws/common"
)

// firewallFlags are the target-selection flags shared by every firewall
// subcommand.
type firewallFlags struct {
	gpu          bool
	buildbox     bool
	customTarget string
	manifestPath string
	profile      string
	confPath     string
}

func newFirewallCmd() *cobra.Command {
	flags := &firewallFlags{}

	cmd := &cobra.Command{
		Use:   "firewall",
		Short: "Manage security group ingress rules for deployment hosts",
	}
	pf := cmd.PersistentFlags()
	pf.BoolVar(&flags.gpu, "gpu", false, "Operate on the GPU inference server target")
	pf.BoolVar(&flags.buildbox, "buildbox", false, "Operate on the build box target")
	pf.StringVar(&flags.customTarget, "target", "", "Operate on a custom target declared in the manifest")
	pf.StringVar(&flags.manifestPath, "manifest", "", "Path to the deployment manifest (required with --target)")
	pf.StringVar(&flags.profile, "profile", "", "AWS profile name (default: credential chain)")
	pf.StringVar(&flags.confPath, "config", config.DefaultPath(), "Path to deploy.conf")

	cmd.AddCommand(newFirewallConfigureCmd(flags))
	cmd.AddCommand(newFirewallListCmd(flags))
	cmd.AddCommand(newFirewallRevokeCmd(flags))
	return cmd
}

// resolveTarget maps the selection flags onto one firewall target.
// Exactly one of --gpu, --buildbox, --target must be given; --gpu is the
// default when none is.
func resolveTarget(cfg *config.DeployConfig, flags *firewallFlags) (*firewall.Target, error) {
	selected := 0
	for _, b := range []bool{flags.gpu, flags.buildbox, flags.customTarget != ""} {
		if b {
			selected++
		}
	}
	if selected > 1 {
		return nil, fmt.Errorf("choose exactly one of --gpu, --buildbox, --target")
	}

	switch {
	case flags.buildbox:
		return cfg.TargetFor(firewall.KindBuildbox)
	case flags.customTarget != "":
		if flags.manifestPath == "" {
			return nil, fmt.Errorf("--target requires --manifest")
		}
		m, err := manifest.Load(flags.manifestPath)
		if err != nil {
			return nil, err
		}
		return m.Target(flags.customTarget)
	default:
		return cfg.TargetFor(firewall.KindGPU)
	}
}

// firewallSession is the assembled context for one firewall run: the
// target, the authorization store, and the cloud client. It replaces the
// global state the original deployment scripts threaded through the
// environment.
type firewallSession struct {
	target *firewall.Target
	store  *authstore.Store
	client firewall.CloudFirewallClient
	ask    prompt.Session
	out    io.Writer
}

// newFirewallSession loads deploy.conf, resolves the target and AWS
// credentials, and wires up the EC2-backed client.
func newFirewallSession(cmd *cobra.Command, flags *firewallFlags) (*firewallSession, error) {
	cfg, err := config.Load(flags.confPath)
	if err != nil {
		return nil, err
	}
	target, err := resolveTarget(cfg, flags)
	if err != nil {
		return nil, err
	}

	provider := common.NewDefaultAWSClientProvider()
	pc, err := provider.LoadProfile(cmd.Context(), flags.profile, cfg.Region)
	if err != nil {
		return nil, err
	}

	return &firewallSession{
		target: target,
		store:  authstore.New(cfg.Path),
		client: firewall.NewEC2FirewallClient(pc.Config),
		ask:    prompt.NewTerminal(),
		out:    cmd.OutOrStdout(),
	}, nil
}

func newFirewallConfigureCmd(flags *firewallFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "configure",
		Short:        "Interactively reconcile a target's ingress rules",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := newFirewallSession(cmd, flags)
			if err != nil {
				return err
			}
			return runConfigure(cmd.Context(), fs, colorOutput())
		},
	}
}

func newFirewallListCmd(flags *firewallFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "Show a target's current ingress rules grouped by source",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := newFirewallSession(cmd, flags)
			if err != nil {
				return err
			}
			engine := firewall.NewEngine(fs.client, io.Discard)
			state, err := engine.ListCurrentState(cmd.Context(), fs.target)
			if err != nil {
				return err
			}
			output.RenderState(fs.out, fs.target.DisplayName, state)
			return nil
		},
	}
}

func newFirewallRevokeCmd(flags *firewallFlags) *cobra.Command {
	var (
		all   bool
		cidrs []string
	)

	cmd := &cobra.Command{
		Use:          "revoke",
		Short:        "Remove authorized sources without the interactive flow",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := newFirewallSession(cmd, flags)
			if err != nil {
				return err
			}
			return runRevoke(cmd.Context(), fs, all, cidrs)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Revoke every persisted authorized source")
	cmd.Flags().StringSliceVar(&cidrs, "cidr", nil, "Source address to revoke (repeatable)")
	return cmd
}

// runConfigure drives the interactive reconciliation flow: optional
// removals over the persisted list, then new authorizations, then one
// engine pass and a summary.
func runConfigure(ctx context.Context, fs *firewallSession, colored bool) error {
	entries, err := fs.store.Load()
	if err != nil {
		return err
	}

	var removals []string
	removedDescs := make(map[string]string)
	if len(entries) > 0 {
		removals, err = askRemovals(fs, entries)
		if err != nil {
			return err
		}
		for _, cidr := range removals {
			removedDescs[cidr] = entries[cidr]
			delete(entries, cidr)
		}
	}

	if err := askAdditions(fs, entries); err != nil {
		return err
	}

	desired := make([]firewall.AuthorizedEntry, 0, len(entries))
	for _, cidr := range sortedKeys(entries) {
		desired = append(desired, firewall.AuthorizedEntry{CIDR: cidr, Description: entries[cidr]})
	}

	engine := firewall.NewEngine(fs.client, fs.out)
	report, err := engine.Reconcile(ctx, fs.target, desired, removals)
	if report == nil {
		// Listing the live rules failed; nothing was reconciled.
		return err
	}
	if err != nil {
		// Mutations ran but the final listing failed; the summary below
		// still shows every per-item outcome.
		fmt.Fprintf(fs.out, "warning: %v\n", err)
	}

	// A source whose revoke calls failed is still live; keep its entry so
	// a re-run offers the removal again.
	for _, res := range report.Removed {
		if len(res.FailedPorts) > 0 {
			entries[res.CIDR] = removedDescs[res.CIDR]
		}
	}

	if saveErr := fs.store.Save(entries); saveErr != nil {
		return saveErr
	}

	fmt.Fprintln(fs.out)
	output.RenderReport(fs.out, report, colored)
	return nil
}

// askRemovals shows the persisted list and collects the operator's
// deletion selection. Destructive, so it defaults to "no" and each
// selection is confirmed before being returned. Invalid selection strings
// loop back to re-prompt rather than failing the run.
func askRemovals(fs *firewallSession, entries map[string]string) ([]string, error) {
	remove, err := fs.ask.Confirm("Remove any currently authorized sources?", false)
	if err != nil || !remove {
		return nil, err
	}

	cidrs := sortedKeys(entries)
	fmt.Fprintln(fs.out, "Currently authorized sources:")
	for i, cidr := range cidrs {
		fmt.Fprintf(fs.out, "  %d) %-18s %s\n", i+1, cidr, entries[cidr])
	}

	var indices []int
	for {
		sel, err := fs.ask.Selection(`Entries to remove ("1,3" or "all")`)
		if err != nil {
			return nil, err
		}
		indices, err = firewall.ParseSelection(sel, len(cidrs))
		if err != nil {
			fmt.Fprintf(fs.out, "  %v\n", err)
			continue
		}
		break
	}

	removals := make([]string, 0, len(indices))
	for _, idx := range indices {
		removals = append(removals, cidrs[idx])
	}

	ok, err := fs.ask.Confirm(fmt.Sprintf("Revoke access for %d source(s)?", len(removals)), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return removals, nil
}

// askAdditions collects new (address, description) pairs into entries.
// The first question defaults to yes on a fresh deployment.
func askAdditions(fs *firewallSession, entries map[string]string) error {
	for {
		add, err := fs.ask.Confirm("Authorize a source address?", len(entries) == 0)
		if err != nil {
			return err
		}
		if !add {
			return nil
		}
		cidr, err := fs.ask.HostAddress("Source IPv4 address")
		if err != nil {
			return err
		}
		desc, err := fs.ask.Description(fmt.Sprintf("Description for %s", cidr))
		if err != nil {
			return err
		}
		entries[cidr] = desc
	}
}

// runRevoke removes sources non-interactively: either the whole persisted
// list (--all) or the given addresses.
func runRevoke(ctx context.Context, fs *firewallSession, all bool, cidrs []string) error {
	entries, err := fs.store.Load()
	if err != nil {
		return err
	}

	var removals []string
	switch {
	case all:
		removals = sortedKeys(entries)
	case len(cidrs) > 0:
		for _, cidr := range cidrs {
			if !firewall.ValidHost(cidr) {
				return fmt.Errorf("invalid source address %q", cidr)
			}
			removals = append(removals, cidr)
		}
	default:
		return fmt.Errorf("nothing to revoke: pass --all or --cidr")
	}

	engine := firewall.NewEngine(fs.client, fs.out)
	results := engine.RemoveEntries(ctx, fs.target, removals)

	failed := 0
	for _, res := range results {
		if len(res.FailedPorts) > 0 {
			failed++
			continue
		}
		delete(entries, res.CIDR)
	}
	if err := fs.store.Save(entries); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d source(s) could not be fully revoked; re-run to retry", failed)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
