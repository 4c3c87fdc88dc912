package aws

import (
	"context"
	"testing"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("LoadAWSConfig error: %v", err)
	}
	if cfg.Region != "ap-south-1" {
		t.Fatalf("region = %s, want ap-south-1", cfg.Region)
	}
}

func TestLoadAWSConfig_RegionFromEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("LoadAWSConfig error: %v", err)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("region = %s, want us-east-1", cfg.Region)
	}
}
