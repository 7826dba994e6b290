package main

import (
	"fmt"
	"os"

	git "github.com/corevcs/mgit"
	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"golang.org/x/xerrors"

	"github.com/spf13/cobra"
)

func newCommitTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree <tree>",
		Short: "create a commit from a tree",
		Args:  cobra.ExactArgs(1),
	}

	parent := cmd.Flags().StringP("parent", "p", "", "id of the parent commit")
	message := cmd.Flags().StringP("message", "m", "", "commit message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitTreeCmd(args[0], *parent, *message)
	}

	return cmd
}

func commitTreeCmd(treeHex, parentHex, message string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	r, err := git.OpenRepository(pwd, git.Options{})
	if err != nil {
		return err
	}

	treeOid, err := ginternals.NewOidFromHex(treeHex)
	if err != nil {
		return xerrors.Errorf("invalid tree id %q: %w", treeHex, err)
	}

	opts := &object.CommitOptions{Message: message}
	if parentHex != "" {
		parentOid, err := ginternals.NewOidFromHex(parentHex)
		if err != nil {
			return xerrors.Errorf("invalid parent id %q: %w", parentHex, err)
		}
		opts.ParentsID = []ginternals.Oid{parentOid}
	}

	author := object.NewSignature(os.Getenv("USER"), "")
	commit := object.NewCommit(treeOid, author, opts)

	oid, err := r.WriteObject(commit.ToObject())
	if err != nil {
		return err
	}

	_, err = fmt.Println(oid.String())
	return err
}
