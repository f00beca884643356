package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

const catChunkSize = 1 << 20

var catCmd = &cobra.Command{
	Use:   "cat remote-path",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()
		ctx := context.Background()

		fd, err := c.Open(ctx, args[0], int32(os.O_RDONLY), 0)
		if err != nil {
			return err
		}
		defer c.Close(ctx, fd)

		buf := make([]byte, catChunkSize)
		for {
			n, err := c.Read(ctx, fd, buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
		}
	},
}
