package main

import (
	"context"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir remote-dir",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		return c.Mkdir(context.Background(), args[0], 0755)
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir remote-dir",
	Short: "Remove a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		return c.Rmdir(context.Background(), args[0])
	},
}
