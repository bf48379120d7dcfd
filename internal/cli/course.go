package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/otc-labs/otc/internal/config"
	"github.com/otc-labs/otc/internal/store"
)

var (
	courseTeacher     string
	courseDescription string
	courseDue         string
	courseSearch      string
	courseUndone      bool
)

func init() {
	courseAddCmd.Flags().StringVar(&courseTeacher, "teacher", "", "Teacher name")
	courseAddCmd.Flags().StringVar(&courseDescription, "description", "", "Course description")
	courseAddCmd.Flags().StringVar(&courseDue, "due", "", "Due date (YYYY-MM-DD)")
	courseListCmd.Flags().StringVarP(&courseSearch, "search", "s", "", "Filter by course or teacher name")
	courseDoneCmd.Flags().BoolVar(&courseUndone, "undo", false, "Mark the course as not done")

	courseCmd.AddCommand(courseAddCmd, courseListCmd, courseRmCmd, courseDoneCmd)
	rootCmd.AddCommand(courseCmd)
}

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if courseDue != "" {
			if _, err := time.Parse("2006-01-02", courseDue); err != nil {
				return fmt.Errorf("invalid due date %q (expected YYYY-MM-DD)", courseDue)
			}
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.CreateCourse(cmd.Context(), store.Course{
			Name:        args[0],
			Teacher:     courseTeacher,
			Description: courseDescription,
			DueDate:     courseDue,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added course %d: %s\n", id, args[0])
		return nil
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses, soonest deadline first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		courses, err := s.ListCourses(cmd.Context(), courseSearch)
		if err != nil {
			return err
		}
		if len(courses) == 0 {
			fmt.Println("No courses.")
			return nil
		}
		for _, c := range courses {
			mark := " "
			if c.Done {
				mark = "x"
			}
			due := c.DueDate
			if due == "" {
				due = "-"
			}
			fmt.Printf("[%s] %4d  %-10s  %s", mark, c.ID, due, c.Name)
			if c.Teacher != "" {
				fmt.Printf("  (%s)", c.Teacher)
			}
			fmt.Println()
		}
		return nil
	},
}

var courseRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a course and its resources",
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

		if _, err := s.GetCourse(cmd.Context(), id); err != nil {
			return err
		}
		if err := s.DeleteCourse(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted course %d\n", id)
		return nil
	},
}

var courseDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a course as done",
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

		if _, err := s.GetCourse(cmd.Context(), id); err != nil {
			return err
		}
		return s.SetDone(cmd.Context(), id, !courseUndone)
	},
}

func openStore(ctx context.Context) (*store.Store, error) {
	config.Load()
	return store.Open(ctx, config.StorePath())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
