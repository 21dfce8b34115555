// Package cli holds the process-wide console and runs the root command.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/willibrandon/nugetify/cmd/nugetify/output"
)

// Console is the global console for CLI commands
var Console = output.DefaultConsole()

// Execute configures version output on root and runs it
func Execute(ctx context.Context, root *cobra.Command) error {
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.Version = GetVersion()
	root.SetVersionTemplate(GetFullVersion() + "\n")
	return root.ExecuteContext(ctx)
}
