package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/voxlane/asrctl/internal/providers/aws/common"
)

// fakeAWSProvider satisfies common.AWSClientProvider without touching the
// network.
type fakeAWSProvider struct {
	accountID  string
	loadErr    error
	regionsErr error
}

func (p *fakeAWSProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	name := profile
	if name == "" {
		name = "default"
	}
	return &common.ProfileConfig{ProfileName: name, AccountID: p.accountID, Region: region}, nil
}

func (p *fakeAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	if p.regionsErr != nil {
		return nil, p.regionsErr
	}
	return []string{"eu-west-1", "us-east-1"}, nil
}

func TestRunDoctor_Healthy(t *testing.T) {
	provider := &fakeAWSProvider{accountID: "123456789012"}
	var buf bytes.Buffer

	result, err := runDoctor(context.Background(), provider, &buf, "table", "", testConfPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OverallHealthy {
		t.Fatalf("expected healthy result: %+v", result)
	}
	if result.AWS.AccountID != "123456789012" {
		t.Fatalf("account ID not propagated: %+v", result.AWS)
	}
	if !strings.Contains(buf.String(), "Environment is healthy.") {
		t.Fatalf("table output missing healthy line:\n%s", buf.String())
	}
}

func TestRunDoctor_CredentialsFailure(t *testing.T) {
	provider := &fakeAWSProvider{loadErr: errors.New("no credential providers")}
	var buf bytes.Buffer

	result, err := runDoctor(context.Background(), provider, &buf, "table", "", testConfPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallHealthy {
		t.Fatalf("expected unhealthy result")
	}
	if result.AWS.Credentials {
		t.Fatalf("credentials should be marked failed")
	}
	if !strings.Contains(result.AWS.Error, "no credential providers") {
		t.Fatalf("error not captured: %+v", result.AWS)
	}
}

func TestRunDoctor_MissingConfig(t *testing.T) {
	provider := &fakeAWSProvider{accountID: "123456789012"}
	var buf bytes.Buffer

	result, err := runDoctor(context.Background(), provider, &buf, "table", "", "does-not-exist.conf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallHealthy {
		t.Fatalf("expected unhealthy result without deploy.conf")
	}
	if result.Config.Present {
		t.Fatalf("config should be marked missing")
	}
}

func TestRunDoctor_RegionsFailure(t *testing.T) {
	provider := &fakeAWSProvider{
		accountID:  "123456789012",
		regionsErr: errors.New("ec2:DescribeRegions denied"),
	}
	var buf bytes.Buffer

	result, err := runDoctor(context.Background(), provider, &buf, "table", "", testConfPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallHealthy {
		t.Fatalf("expected unhealthy result")
	}
	if !result.AWS.Credentials || result.AWS.RegionsOK {
		t.Fatalf("expected credentials ok but regions failed: %+v", result.AWS)
	}
}

func TestRunDoctor_JSON(t *testing.T) {
	provider := &fakeAWSProvider{accountID: "123456789012"}
	var buf bytes.Buffer

	if _, err := runDoctor(context.Background(), provider, &buf, "json", "ci", testConfPath(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded DoctorResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.AWS.Profile != "ci" {
		t.Fatalf("profile not in JSON output: %+v", decoded.AWS)
	}
	if !decoded.OverallHealthy {
		t.Fatalf("expected healthy JSON result: %+v", decoded)
	}
}
