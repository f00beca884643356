package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write remote-path",
	Short: "Create remote-path and write stdin to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		ctx := context.Background()

		fd, err := c.Creat(ctx, args[0], 0644)
		if err != nil {
			return err
		}
		defer c.Close(ctx, fd)

		buf := make([]byte, 1<<20)
		for {
			n, rerr := os.Stdin.Read(buf)
			if n > 0 {
				if _, werr := c.Write(ctx, fd, buf[:n]); werr != nil {
					return werr
				}
			}
			if rerr == io.EOF {
				return nil
			}
			if rerr != nil {
				return rerr
			}
		}
	},
}
