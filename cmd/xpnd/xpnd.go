// Command xpnd is the XPN server daemon: it listens for client
// connections on one transport and dispatches operations against a
// local directory tree standing in for one partition server (§4.4,
// §6). It also doubles as the administration tool for already-running
// servers (stop/stats), following a hosts file the same way the
// original xpn_server's shutdown/print-stats paths do.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xpn-project/xpn/log"
	"github.com/xpn-project/xpn/server"
	"github.com/xpn-project/xpn/transport"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xpnd",
	Short: "XPN partition server daemon",
	Long: `
xpnd serves one partition server: it listens for client connections
over a transport (sck, mpi, or fabric) and dispatches filesystem
operations against a local root directory.`,
}

var (
	flagType         string
	flagServerType   string
	flagPort         int
	flagRoot         string
	flagThreadsPerOp int
	flagAwaitStop    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start serving a partition out of a local directory",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statsCmd)

	flags := serveCmd.Flags()
	flags.StringVar(&flagType, "type", "pool", "connection concurrency mode: pool|on_demand|sequential")
	flags.StringVar(&flagServerType, "server_type", "sck", "transport: sck|mpi|fabric")
	flags.IntVar(&flagPort, "port", 3456, "listen port (sck_server only)")
	flags.StringVar(&flagRoot, "root", ".", "local directory backing this partition server")
	flags.IntVar(&flagThreadsPerOp, "threads_per_op", 8, "worker threads for pool mode / per-op concurrency")
	flags.BoolVar(&flagAwaitStop, "await_stop", false, "make every stop request wait for in-flight work to drain")
}

// connModeFromType maps the --type flag's vocabulary onto
// workerpool.New's mode strings (§4.8).
func connModeFromType(t string) (string, error) {
	switch t {
	case "pool", "":
		return "thread_pool", nil
	case "on_demand":
		return "thread_on_demand", nil
	case "sequential":
		return "sequential", nil
	default:
		return "", fmt.Errorf("xpnd: unknown --type %q", t)
	}
}

func listenTransport(serverType string, port int) (transport.Transport, error) {
	switch serverType {
	case "sck", "":
		return transport.ListenSck(fmt.Sprintf(":%d", port))
	case "mpi":
		return transport.NewMPITransport(), nil
	case "fabric":
		return transport.NewFabricTransport(), nil
	default:
		return nil, fmt.Errorf("xpnd: unknown --server_type %q", serverType)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	connMode, err := connModeFromType(flagType)
	if err != nil {
		return err
	}

	tr, err := listenTransport(flagServerType, flagPort)
	if err != nil {
		return err
	}

	cfg := server.Config{
		ConnMode:     connMode,
		OpMode:       "thread_pool",
		ThreadsPerOp: flagThreadsPerOp,
		AwaitStop:    flagAwaitStop,
	}
	d, err := server.NewDispatcher(tr, flagRoot, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("xpnd: signal received, stopping")
		d.Stop(flagAwaitStop)
		cancel()
	}()

	log.Infof("xpnd: serving %s on %s transport, root=%s", flagRoot, flagServerType, flagRoot)
	if err := d.Serve(ctx); err != nil {
		return err
	}
	return nil
}
