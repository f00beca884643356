package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls remote-dir",
	Short: "List a directory's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		ctx := context.Background()

		fd, err := c.Opendir(ctx, args[0])
		if err != nil {
			return err
		}
		defer c.Closedir(ctx, fd)

		for {
			name, end, err := c.Readdir(ctx, fd)
			if err != nil {
				return err
			}
			if end {
				return nil
			}
			fmt.Println(name)
		}
	},
}
