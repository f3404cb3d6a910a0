package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxlane/asrctl/internal/config"
	"github.com/voxlane/asrctl/internal/providers/aws/common"
)

// DoctorResult is the structured output of asrctl doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Config struct {
		Path               string `json:"path"`
		Present            bool   `json:"present"`
		RegionSet          bool   `json:"region_set"`
		GPUGroupSet        bool   `json:"gpu_group_set"`
		SecurityConfigured bool   `json:"security_configured"`
		Error              string `json:"error,omitempty"`
	} `json:"config"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			confPath, _ := cmd.Flags().GetString("config")
			result, err := runDoctor(
				context.Background(),
				common.NewDefaultAWSClientProvider(),
				cmd.OutOrStdout(),
				format,
				profile,
				confPath,
			)
			if err != nil {
				// Rendering failure, let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().String("config", config.DefaultPath(), "Path to deploy.conf")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers must inspect result.OverallHealthy to decide
// the exit code.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, format, profile, confPath string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, profile, confPath)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering; callers decide presentation.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, profile, confPath string) DoctorResult {
	var result DoctorResult

	// deploy.conf: presence and the fields the firewall flow needs.
	result.Config.Path = confPath
	cfg, err := config.Load(confPath)
	if err != nil {
		result.Config.Error = err.Error()
	} else {
		result.Config.Present = true
		result.Config.RegionSet = cfg.Region != ""
		result.Config.GPUGroupSet = cfg.GPUSecurityGroup != ""
		result.Config.SecurityConfigured = cfg.SecurityConfigured
	}

	// AWS: credentials → STS account ID → region discovery. An empty
	// profile string selects the default credential chain.
	if profile != "" {
		result.AWS.Profile = profile
	}
	region := ""
	if cfg != nil {
		region = cfg.Region
	}
	profileCfg, err := awsProvider.LoadProfile(ctx, profile, region)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		_, err = awsProvider.GetActiveRegions(ctx, profileCfg)
		result.AWS.RegionsOK = err == nil
		if err != nil {
			result.AWS.Error = err.Error()
		}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		result.Config.Present &&
		result.Config.RegionSet
	return result
}

// renderDoctorTable writes the human-readable diagnostic summary.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	check := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}

	fmt.Fprintln(w, "asrctl doctor")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "AWS credentials     %s", check(result.AWS.Credentials))
	if result.AWS.AccountID != "" {
		fmt.Fprintf(w, "  (account %s)", result.AWS.AccountID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "AWS regions         %s\n", check(result.AWS.RegionsOK))
	fmt.Fprintf(w, "deploy.conf         %s  (%s)\n", check(result.Config.Present), result.Config.Path)
	fmt.Fprintf(w, "AWS_REGION set      %s\n", check(result.Config.RegionSet))
	fmt.Fprintf(w, "GPU security group  %s\n", check(result.Config.GPUGroupSet))
	fmt.Fprintf(w, "firewall configured %s\n", check(result.Config.SecurityConfigured))
	if result.AWS.Error != "" {
		fmt.Fprintf(w, "\nAWS error: %s\n", result.AWS.Error)
	}
	if result.Config.Error != "" {
		fmt.Fprintf(w, "config error: %s\n", result.Config.Error)
	}
	fmt.Fprintln(w)
	if result.OverallHealthy {
		fmt.Fprintln(w, "Environment is healthy.")
	} else {
		fmt.Fprintln(w, "Environment has problems; fix the FAIL lines above.")
	}
}
