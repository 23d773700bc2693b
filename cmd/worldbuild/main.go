package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "worldbuild",
		Short:         "Build ECS scenes from prefabs and Lua scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "config/worldbuild.toml", "config file (overridden by $WORLDBUILD_CONFIG)")
	root.AddCommand(newRunCmd(), newScenesCmd())
	return root
}
