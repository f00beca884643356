package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xpn-project/xpn/transport"
	"github.com/xpn-project/xpn/wire"
)

var flagShutdownFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal every server named in --shutdown_file to finish",
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlEveryHost(flagShutdownFile, finishCode())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print operation counters from every server named in --shutdown_file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsEveryHost(flagShutdownFile)
	},
}

func init() {
	for _, c := range []*cobra.Command{stopCmd, statsCmd} {
		c.Flags().StringVar(&flagShutdownFile, "shutdown_file", "", "path to a newline-delimited list of host:port server addresses")
		c.Flags().BoolVar(&flagAwaitStop, "await_stop", false, "wait for FINISH_CODE_AWAIT instead of FINISH_CODE")
	}
}

func finishCode() wire.ControlCode {
	if flagAwaitStop {
		return wire.ControlFinishAwait
	}
	return wire.ControlFinish
}

// readHosts parses a shutdown_file into its listed server addresses,
// one per line (§6, matching xpn_server_down's host-file scan).
func readHosts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xpnd: opening shutdown_file: %w", err)
	}
	defer f.Close()

	var hosts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		hosts = append(hosts, line)
	}
	return hosts, scanner.Err()
}

func controlEveryHost(shutdownFile string, code wire.ControlCode) error {
	hosts, err := readHosts(shutdownFile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	var firstErr error
	for _, addr := range hosts {
		if err := sendControl(ctx, addr, code); err != nil {
			fmt.Fprintf(os.Stderr, "xpnd: %s: %v\n", addr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Printf("%s: ok\n", addr)
	}
	return firstErr
}

func sendControl(ctx context.Context, addr string, code wire.ControlCode) error {
	tr := transport.NewSckTransport()
	conn, err := tr.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	if err := conn.WriteControl(ctx, code); err != nil {
		return err
	}
	ack, err := conn.ReadControl(ctx)
	if err != nil {
		return err
	}
	if ack != wire.ControlAccept {
		return fmt.Errorf("unexpected ack %v", ack)
	}
	return nil
}

func statsEveryHost(shutdownFile string) error {
	hosts, err := readHosts(shutdownFile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	var firstErr error
	for _, addr := range hosts {
		counts, err := fetchStats(ctx, addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xpnd: %s: %v\n", addr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Printf("%s:\n", addr)
		for op, n := range counts {
			fmt.Printf("  %s\t%d\n", op, n)
		}
	}
	return firstErr
}

// fetchStats dials addr, requests STATS_CODE, and decodes the reply
// (a uint32 count followed by (op uint32, count uint64) pairs, §4.4
// control side-channel, mirroring server/control.go's encodeStats).
func fetchStats(ctx context.Context, addr string) (map[wire.Opcode]uint64, error) {
	tr := transport.NewSckTransport()
	conn, err := tr.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Disconnect()

	if err := conn.WriteControl(ctx, wire.ControlStats); err != nil {
		return nil, err
	}
	ack, err := conn.ReadControl(ctx)
	if err != nil {
		return nil, err
	}
	if ack != wire.ControlAccept {
		return nil, fmt.Errorf("unexpected ack %v", ack)
	}
	header, err := conn.ReadData(ctx, 0, 4)
	if err != nil {
		return nil, err
	}
	count := wire.ByteOrder.Uint32(header)
	body, err := conn.ReadData(ctx, 0, int(count)*12)
	if err != nil {
		return nil, err
	}
	out := make(map[wire.Opcode]uint64, count)
	for i := uint32(0); i < count; i++ {
		off := i * 12
		op := wire.Opcode(wire.ByteOrder.Uint32(body[off : off+4]))
		n := wire.ByteOrder.Uint64(body[off+4 : off+12])
		out[op] = n
	}
	return out, nil
}
