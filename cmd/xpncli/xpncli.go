// Command xpncli is a small manual-testing client for an XPN
// partition: cat/write/stat/ls/mkdir wrappers around the client
// package's Open/Read/Write/Stat/Opendir surface (§6 Client API),
// useful for poking at a running partition without writing Go.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/xpn-project/xpn/client"
	"github.com/xpn-project/xpn/config"
	"github.com/xpn-project/xpn/partition"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xpncli",
	Short: "Manual-testing client for an XPN partition",
}

var flagConf string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConf, "conf", os.Getenv("XPN_CONF"), "partition config file (defaults to $XPN_CONF)")
	rootCmd.AddCommand(catCmd, writeCmd, statCmd, lsCmd, mkdirCmd, rmdirCmd, rmCmd, mvCmd)
}

// newClient loads the partition config and resolves which configured
// server, if any, shares this host's name (the read tie-break, §4.1).
func newClient() (*client.Client, error) {
	if flagConf == "" {
		return nil, fmt.Errorf("xpncli: no --conf given and XPN_CONF unset")
	}
	cfg, err := config.Load(flagConf)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	localServ, hasLocal := partition.ServerID(0), false
	for i, s := range cfg.Servers {
		if hostnameMatches(s.Host, hostname) {
			localServ, hasLocal = partition.ServerID(i), true
			break
		}
	}

	return client.New(*cfg, localServ, hasLocal, client.Options{WorkerMode: "thread_pool", Threads: 8})
}

func hostnameMatches(host, hostname string) bool {
	if host == hostname {
		return true
	}
	ips, err := net.LookupHost(host)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if ip == hostname {
			return true
		}
	}
	return false
}
