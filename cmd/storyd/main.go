package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "storyd:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Every subcommand shares --config.
func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "storyd",
		Short:         "Story, frame and narration backend for the story demo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("STORYD_CONFIG"), "Config file (.yaml, .json or .toml); env overrides still apply")

	root.AddCommand(newServeCmd(&cfgPath), newConfigCmd(&cfgPath), newHealthCmd())
	return root
}
