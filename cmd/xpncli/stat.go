package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat remote-path",
	Short: "Print a file's attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Disconnect()

		attr, err := c.Stat(context.Background(), args[0])
		if err != nil {
			return err
		}
		kind := "file"
		if attr.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(os.Stdout, "%s\tsize=%d\tmode=%o\tmtime=%s\n",
			kind, attr.Size, attr.Mode, time.Unix(attr.Mtime, 0).Format(time.RFC3339))
		return nil
	},
}
