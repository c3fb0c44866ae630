package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:               "fitflow",
		Short:             "Camera-based workout trainer",
		Long:              "FitFlow runs workout plans against a live rep-counting trainer, tracks your history offline, and syncs it to a FitFlow history server.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "path to config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.profileCmd(),
		a.plansCmd(),
		a.workoutCmd(),
		a.historyCmd(),
		a.syncCmd(),
		a.mcpCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor("Error:"), err)
		os.Exit(1)
	}
}
