package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/otc-labs/otc/internal/branding"
	"github.com/otc-labs/otc/internal/config"
	"github.com/otc-labs/otc/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` tracks courses, their deadlines, and the files attached to
them in a local database, and keeps itself current: every start checks the
configured endpoint for a newer release and offers to install it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// The update command manages its own check.
		name := cmd.Name()
		if name == "update" || name == "self-update" {
			return
		}

		config.Load()

		// Non-blocking banner from the cached version check; a stale cache
		// is refreshed in the background for the next invocation.
		u := updater.New(config.UpdaterConfig(buildVersion))
		u.CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
