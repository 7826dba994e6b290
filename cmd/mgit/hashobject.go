package main

import (
	"fmt"
	"os"

	git "github.com/corevcs/mgit"
	"github.com/corevcs/mgit/ginternals/object"

	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object <path>",
		Short: "compute the object id of a file and optionally store it",
		Args:  cobra.ExactArgs(1),
	}

	write := cmd.Flags().BoolP("write", "w", false, "write the object into the object store")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return hashObjectCmd(args[0], *write)
	}

	return cmd
}

func hashObjectCmd(path string, write bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	o := object.New(object.TypeBlob, content)

	if write {
		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		r, err := git.OpenRepository(pwd, git.Options{})
		if err != nil {
			return err
		}
		if _, err := r.WriteObject(o); err != nil {
			return err
		}
	}

	_, err = fmt.Println(o.ID().String())
	return err
}
