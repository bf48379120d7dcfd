package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otc-labs/otc/internal/platform"
)

var resourceNote string

func init() {
	resourceAddCmd.Flags().StringVar(&resourceNote, "note", "", "Optional note for the files")

	resourceCmd.AddCommand(resourceAddCmd, resourceListCmd, resourceOpenCmd, resourceRmCmd)
	rootCmd.AddCommand(resourceCmd)
}

var resourceCmd = &cobra.Command{
	Use:     "resource",
	Aliases: []string{"res"},
	Short:   "Manage files attached to courses",
}

var resourceAddCmd = &cobra.Command{
	Use:   "add <course-id> <file>...",
	Short: "Attach files to a course (copied, compressed, into the database)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		added := 0
		for _, path := range args[1:] {
			if _, err := s.AddResource(cmd.Context(), courseID, path, resourceNote); err != nil {
				return fmt.Errorf("adding %s: %w", path, err)
			}
			added++
		}
		fmt.Printf("Added %d file(s) to course %d\n", added, courseID)
		return nil
	},
}

var resourceListCmd = &cobra.Command{
	Use:   "list <course-id>",
	Short: "List a course's resources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		resources, err := s.ListResources(cmd.Context(), courseID)
		if err != nil {
			return err
		}
		if len(resources) == 0 {
			fmt.Println("No resources.")
			return nil
		}
		for _, r := range resources {
			name := r.Filename
			if name == "" {
				name = r.Path
			}
			fmt.Printf("%4d  %s", r.ID, name)
			if r.Note != "" {
				fmt.Printf("  (%s)", r.Note)
			}
			fmt.Println()
		}
		return nil
	},
}

var resourceOpenCmd = &cobra.Command{
	Use:   "open <resource-id>",
	Short: "Open a resource with the default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		path, err := s.ExtractResource(cmd.Context(), id)
		if err != nil {
			return err
		}
		return platform.OpenFile(path)
	},
}

var resourceRmCmd = &cobra.Command{
	Use:   "rm <resource-id>",
	Short: "Detach a resource from its course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return s.DeleteResource(cmd.Context(), id)
	},
}
