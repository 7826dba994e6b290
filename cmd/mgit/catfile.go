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

func newCatFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file <hex>",
		Short: "print a blob's content",
		Args:  cobra.ExactArgs(1),
	}

	pretty := cmd.Flags().BoolP("pretty", "p", false, "pretty-print the object's content")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*pretty {
			return xerrors.Errorf("cat-file currently only supports -p")
		}
		return catFileCmd(args[0])
	}

	return cmd
}

func catFileCmd(hex string) error {
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
	if o.Type() != object.TypeBlob {
		return xerrors.Errorf("%s is a %s, not a blob", hex, o.Type())
	}

	_, err = fmt.Print(string(o.Bytes()))
	return err
}
