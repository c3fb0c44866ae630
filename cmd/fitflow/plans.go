package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/models"
)

func (a *app) plansCmd() *cobra.Command {
	var category, level string
	cmd := &cobra.Command{
		Use:   "plans [id]",
		Short: "List workout plans, or show one plan or exercise",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				p, err := a.catalog.Resolve(args[0])
				if err != nil {
					return err
				}
				printPlan(out, p)
				return nil
			}

			for _, p := range a.catalog.Plans(models.Category(category)) {
				printPlan(out, p)
				fmt.Fprintln(out)
			}

			if level == "" {
				if sess, err := a.store.CurrentSession(); err == nil {
					level = string(sess.User.FitnessLevel)
				}
			}
			if level != "" {
				fmt.Fprintln(out, headerColor("Exercises for "+level), dimColor("(start one with `fitflow workout <id>`)"))
				for _, ex := range a.catalog.ForLevel(models.Difficulty(level)) {
					fmt.Fprintf(out, "  %-16s %s\n", ex.ID, ex.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", `plan category: "Lower body", "Upper body" or "Cardio"`)
	cmd.Flags().StringVar(&level, "level", "", "list exercises for a fitness level (defaults to your profile)")
	return cmd
}
