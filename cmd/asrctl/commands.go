package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlane/asrctl/internal/artifacts"
	"github.com/voxlane/asrctl/internal/config"
	"github.com/voxlane/asrctl/internal/health"
	"github.com/voxlane/asrctl/internal/output"
	"github.com/voxlane/asrctl/internal/providers/aws/common"
	"github.com/voxlane/asrctl/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "asrctl",
		Short: "Manage the cloud side of an ASR deployment",
	}
	root.AddCommand(newFirewallCmd())
	root.AddCommand(newArtifactsCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// loadArtifactStore resolves deploy.conf and AWS credentials into an
// artifact store scoped to the deployment's model bucket.
func loadArtifactStore(cmd *cobra.Command, profile, confPath string) (*artifacts.Store, error) {
	cfg, err := config.Load(confPath)
	if err != nil {
		return nil, err
	}
	if cfg.ModelBucket == "" {
		return nil, &config.MissingKeyError{Path: cfg.Path, Key: config.KeyModelBucket}
	}

	provider := common.NewDefaultAWSClientProvider()
	pc, err := provider.LoadProfile(cmd.Context(), profile, cfg.Region)
	if err != nil {
		return nil, err
	}
	return artifacts.NewStore(pc.Config, cfg.ModelBucket, cfg.ModelPrefix), nil
}

func newArtifactsCmd() *cobra.Command {
	var (
		profile  string
		confPath string
	)

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Move pre-built model artifacts to and from object storage",
	}
	cmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS profile name (default: credential chain)")
	cmd.PersistentFlags().StringVar(&confPath, "config", config.DefaultPath(), "Path to deploy.conf")

	list := &cobra.Command{
		Use:          "list",
		Short:        "List stored model artifacts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadArtifactStore(cmd, profile, confPath)
			if err != nil {
				return err
			}
			objects, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			output.RenderArtifacts(cmd.OutOrStdout(), objects)
			return nil
		},
	}

	pull := &cobra.Command{
		Use:          "pull <key> <dest>",
		Short:        "Download one artifact to a local path",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadArtifactStore(cmd, profile, confPath)
			if err != nil {
				return err
			}
			if err := store.Pull(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pulled %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	push := &cobra.Command{
		Use:          "push <src> <key>",
		Short:        "Upload a local file as an artifact",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadArtifactStore(cmd, profile, confPath)
			if err != nil {
				return err
			}
			if err := store.Push(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(list, pull, push)
	return cmd
}

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Inference server operations",
	}
	cmd.AddCommand(newWaitHealthyCmd())
	return cmd
}

func newWaitHealthyCmd() *cobra.Command {
	var (
		url      string
		confPath string
		interval time.Duration
		attempts int
	)

	cmd := &cobra.Command{
		Use:          "wait-healthy",
		Short:        "Wait for the inference server health endpoint to answer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := url
			if target == "" {
				cfg, err := config.Load(confPath)
				if err != nil {
					return err
				}
				if cfg.HealthURL == "" {
					return &config.MissingKeyError{Path: cfg.Path, Key: config.KeyHealthURL}
				}
				target = cfg.HealthURL
			}

			checker := health.NewChecker(target, 5*time.Second)
			fmt.Fprintf(cmd.OutOrStdout(), "waiting for %s (every %s, up to %d attempts)\n", target, interval, attempts)
			if err := checker.Wait(cmd.Context(), interval, attempts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "inference server is healthy")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Health endpoint URL (default: HEALTH_URL from deploy.conf)")
	cmd.Flags().StringVar(&confPath, "config", config.DefaultPath(), "Path to deploy.conf")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Delay between probes")
	cmd.Flags().IntVar(&attempts, "attempts", 30, "Maximum number of probes before giving up")
	return cmd
}

// colorOutput reports whether stdout looks like an interactive terminal.
// Kept deliberately simple: NO_COLOR or a non-terminal disables colour.
func colorOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
