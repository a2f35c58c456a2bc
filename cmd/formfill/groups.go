package main

import (
	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	params := formParams{}
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "print the repeating group state computed from the form data",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(params)
			if err != nil {
				return err
			}
			return printJSON(cmd, session.Snapshot().RepeatingGroups)
		},
	}
	initFormFlags(cmd, &params)
	return cmd
}
