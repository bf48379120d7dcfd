package branding

import (
	"strings"
	"testing"
)

func TestBrandingValues(t *testing.T) {
	if CLIName() == "" {
		t.Error("CLIName is empty")
	}
	if DisplayName() == "" {
		t.Error("DisplayName is empty")
	}
	if !strings.HasPrefix(HomeDir(), ".") {
		t.Errorf("HomeDir %q should be a dot-directory", HomeDir())
	}
	if !strings.HasPrefix(UpdateURL(), "http") {
		t.Errorf("UpdateURL %q should be absolute", UpdateURL())
	}
	if UserAgent() == "" {
		t.Error("UserAgent is empty")
	}
}

func TestEnvVar(t *testing.T) {
	got := EnvVar("update_url")
	if !strings.HasPrefix(got, EnvPrefix()+"_") {
		t.Errorf("EnvVar = %q, want %s_ prefix", got, EnvPrefix())
	}
	if got != EnvPrefix()+"_UPDATE_URL" {
		t.Errorf("EnvVar = %q, want uppercased suffix", got)
	}
}
