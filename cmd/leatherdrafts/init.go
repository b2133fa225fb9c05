package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/leather-drafts/internal/project"
)

func (a *app) initCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "init <client>",
		Short: "Create projects/<client> with starter inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := project.New(root, args[0])
			if err != nil {
				return err
			}
			written, err := project.Init(a.fs, l)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range written {
				fmt.Fprintf(w, "wrote %s\n", p)
			}
			fmt.Fprintf(w, "project ready: %s\n", l.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", project.DefaultRoot, "directory holding client projects")
	return cmd
}
