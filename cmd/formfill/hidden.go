package main

import (
	"github.com/spf13/cobra"
)

func newHiddenCmd() *cobra.Command {
	params := formParams{}
	cmd := &cobra.Command{
		Use:   "hidden",
		Short: "print the components hidden by conditional rendering rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(params)
			if err != nil {
				return err
			}
			hidden := session.Snapshot().HiddenFields
			if hidden == nil {
				hidden = []string{}
			}
			return printJSON(cmd, hidden)
		},
	}
	initFormFlags(cmd, &params)
	return cmd
}
