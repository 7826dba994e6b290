package main

import (
	git "github.com/corevcs/mgit"

	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone <url> <dest>",
		Short: "clone a repository over smart HTTP",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		_, err := git.Clone(args[0], args[1])
		return err
	}

	return cmd
}
