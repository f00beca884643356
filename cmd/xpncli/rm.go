package main

import (
	"context"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm remote-path",
	Short: "Remove a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		return c.Unlink(context.Background(), args[0])
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv old-path new-path",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		return c.Rename(context.Background(), args[0], args[1])
	},
}
