package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestGetVersion(t *testing.T) {
	if got := GetVersion(); got != Version {
		t.Errorf("GetVersion() = %q, want %q", got, Version)
	}
}

func TestGetFullVersion(t *testing.T) {
	got := GetFullVersion()
	if !strings.HasPrefix(got, "nugetify version "+Version) {
		t.Errorf("GetFullVersion() = %q", got)
	}
}

func TestExecute_VersionFlag(t *testing.T) {
	var out bytes.Buffer
	root := &cobra.Command{Use: "nugetify", RunE: func(*cobra.Command, []string) error { return nil }}
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := Execute(context.Background(), root); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "nugetify version") {
		t.Errorf("output = %q", out.String())
	}
}
