package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mgit",
		Short: "a minimal content-addressed VCS core, in pure Go",
	}

	cmd.AddCommand(
		newInitCmd(),
		newCatFileCmd(),
		newHashObjectCmd(),
		newLsTreeCmd(),
		newWriteTreeCmd(),
		newCommitTreeCmd(),
		newCloneCmd(),
	)

	return cmd
}
