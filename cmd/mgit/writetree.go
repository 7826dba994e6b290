package main

import (
	"fmt"
	"os"

	git "github.com/corevcs/mgit"

	"github.com/spf13/cobra"
)

func newWriteTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "build a tree from the current directory and write it",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return writeTreeCmd()
	}

	return cmd
}

func writeTreeCmd() error {
	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	r, err := git.OpenRepository(pwd, git.Options{})
	if err != nil {
		return err
	}

	tree, err := r.WriteTree(".")
	if err != nil {
		return err
	}

	_, err = fmt.Println(tree.ID().String())
	return err
}
