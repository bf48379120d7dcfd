package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otc-labs/otc/internal/branding"
	"github.com/otc-labs/otc/internal/config"
	"github.com/otc-labs/otc/internal/platform"
	"github.com/otc-labs/otc/internal/updater"
)

var (
	updateCheck bool
	updateYes   bool
)

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for updates, don't install")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Install without prompting")

	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"self-update"},
	Short:   "Update " + branding.CLIName() + " to the latest version",
	Long: `Checks the configured endpoint for a newer release, and downloads,
verifies, and installs it. The replaced files are backed up beside the
installation before anything is overwritten.

  ` + branding.CLIName() + ` update           # check and install interactively
  ` + branding.CLIName() + ` update --check   # check only
  ` + branding.CLIName() + ` update --yes     # install without prompting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		cfg := config.UpdaterConfig(buildVersion)
		u := updater.New(cfg)

		if updateCheck {
			m := u.FetchManifest(cmd.Context())
			if m == nil {
				fmt.Println("No update information available.")
				return nil
			}
			if updater.IsUpdateAvailable(buildVersion, m.Version) {
				fmt.Printf("Update available: %s -> %s\n", buildVersion, m.Version)
				if m.Changelog != "" {
					fmt.Printf("\n%s\n", m.Changelog)
				}
			} else {
				fmt.Printf("You are on the latest version (%s)\n", buildVersion)
			}
			saveCheckResult(m)
			return nil
		}

		decide := promptDecision
		if updateYes {
			decide = func(*updater.Manifest) updater.Decision { return updater.DecisionProceed }
		}

		orch := updater.NewOrchestrator(u,
			updater.WithDecision(decide),
			updater.WithTransitionHook(printTransition),
		)
		orch.Start(cmd.Context())

		// The worker owns the whole attempt; this command just waits for
		// its terminal event.
		res := <-orch.Result()
		switch res.State {
		case updater.StateNoUpdate:
			fmt.Printf("You are on the latest version (%s)\n", buildVersion)
			if res.Manifest != nil {
				saveCheckResult(res.Manifest)
			}
			return nil

		case updater.StateDeclined:
			if res.Decision == updater.DecisionOpenPage {
				page := res.Manifest.PageURL
				if page == "" {
					page = branding.ReleasePageURL()
				}
				if err := platform.OpenURL(page); err != nil {
					fmt.Printf("Open manually: %s\n", page)
				}
			}
			return nil

		case updater.StateDone:
			fmt.Printf("Successfully updated to %s (%s)\n", res.Manifest.Version, res.Outcome.Message)
			saveCheckResult(res.Manifest)
			return nil

		default:
			msg := "update failed"
			if res.Outcome != nil {
				msg = res.Outcome.Message
			}
			return fmt.Errorf("%s", msg)
		}
	},
}

// promptDecision asks the user what to do with an available update. Runs on
// the update worker; stdin is the decision surface of a CLI host.
func promptDecision(m *updater.Manifest) updater.Decision {
	fmt.Fprintf(os.Stderr, "\nNew version available: %s (current: %s)\n", m.Version, buildVersion)
	if m.Changelog != "" {
		fmt.Fprintf(os.Stderr, "\nChangelog:\n%s\n", m.Changelog)
	}
	fmt.Fprint(os.Stderr, "\nInstall now? [y]es / [o]pen release page / [N]o: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return updater.DecisionDefer
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return updater.DecisionProceed
	case "o", "open":
		return updater.DecisionOpenPage
	default:
		return updater.DecisionDefer
	}
}

func printTransition(s updater.State) {
	switch s {
	case updater.StateChecking:
		fmt.Fprintln(os.Stderr, "Checking for updates...")
	case updater.StateDownloading:
		fmt.Fprintln(os.Stderr, "Downloading...")
	case updater.StateVerifying:
		fmt.Fprintln(os.Stderr, "Verifying checksum...")
	case updater.StateApplying:
		fmt.Fprintln(os.Stderr, "Installing...")
	case updater.StateRestarting:
		fmt.Fprintln(os.Stderr, "Restarting...")
	}
}

// saveCheckResult keeps the startup banner cache in sync with what this
// command just learned. Best-effort.
func saveCheckResult(m *updater.Manifest) {
	_ = updater.SaveCache(config.Dir(), &updater.VersionCache{
		LatestVersion:   m.Version,
		CurrentVersion:  buildVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: updater.IsUpdateAvailable(buildVersion, m.Version),
	})
}
