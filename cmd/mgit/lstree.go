package main

import (
	"fmt"
	"os"

	git "github.com/corevcs/mgit"
	"github.com/corevcs/mgit/ginternals"
	"golang.org/x/xerrors"

	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree <hex>",
		Short: "list the entries of a tree",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "list only the entry names")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*nameOnly {
			return xerrors.Errorf("ls-tree currently only supports --name-only")
		}
		return lsTreeCmd(args[0])
	}

	return cmd
}

func lsTreeCmd(hex string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	r, err := git.OpenRepository(pwd, git.Options{})
	if err != nil {
		return err
	}

	oid, err := ginternals.NewOidFromHex(hex)
	if err != nil {
		return xerrors.Errorf("invalid object id %q: %w", hex, err)
	}

	o, err := r.Object(oid)
	if err != nil {
		return err
	}
	tree, err := o.AsTree()
	if err != nil {
		return err
	}

	for _, entry := range tree.Entries() {
		if _, err := fmt.Println(entry.Path); err != nil {
			return err
		}
	}
	return nil
}
