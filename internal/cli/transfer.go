package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export courses and resource references as JSON",
	Long: `Writes the course tree as JSON to the given file, or to stdout.
Resource file contents are not included; importers re-read them from the
recorded paths where still available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer f.Close()
			out = f
		}
		return s.ExportJSON(cmd.Context(), out)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import courses from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.ImportJSON(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d course(s)\n", n)
		return nil
	},
}
