package server

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/xpn-project/xpn/log"
	"github.com/xpn-project/xpn/transport"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/workerpool"
)

// connState for a dispatcher moves through the four states named in
// §4.4: Listening, Handshake, Serving, Closing. Dispatcher folds
// Listening/Handshake into Accept (a fresh Conn already implies a
// completed accept/handshake at the transport layer) and drives
// Serving/Closing per connection.
type connPhase int

const (
	phaseServing connPhase = iota
	phaseClosing
)

// Dispatcher owns one Transport's Accept loop and fans connections
// out to per-connection handling, itself running on a Pool (§4.4
// "Concurrency mode selection... for both the per-connection
// dispatcher and the per-operation worker").
type Dispatcher struct {
	transport transport.Transport
	backend   *Backend
	stats     *Stats
	connPool  workerpool.Pool // dispatches one goroutine/task per connection
	opPool    workerpool.Pool // dispatches one goroutine/task per operation

	awaitStop bool
	inFlight  sync.WaitGroup
	stopping  int32
}

// Config selects the two worker-pool modes (§4.4/§4.8) and the
// await_stop shutdown behavior (§6, SUPPLEMENTED FEATURES).
type Config struct {
	ConnMode     string
	OpMode       string
	ThreadsPerOp int
	AwaitStop    bool
}

// NewDispatcher builds a Dispatcher serving out of root via t.
func NewDispatcher(t transport.Transport, root string, cfg Config) (*Dispatcher, error) {
	backend, err := NewBackend(root)
	if err != nil {
		return nil, err
	}
	connPool, err := workerpool.New(cfg.ConnMode, cfg.ThreadsPerOp)
	if err != nil {
		return nil, err
	}
	opPool, err := workerpool.New(cfg.OpMode, cfg.ThreadsPerOp)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		transport: t,
		backend:   backend,
		stats:     NewStats(),
		connPool:  connPool,
		opPool:    opPool,
		awaitStop: cfg.AwaitStop,
	}, nil
}

// Stats exposes the running counters for the control side-channel.
func (d *Dispatcher) Stats() *Stats { return d.stats }

// Serve accepts connections until ctx is cancelled or the transport's
// listener closes.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		if atomic.LoadInt32(&d.stopping) == 1 {
			return nil
		}
		conn, err := d.transport.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.inFlight.Add(1)
		d.connPool.LaunchNoFuture(func() (int64, error) {
			defer d.inFlight.Done()
			d.serveConn(ctx, conn)
			return 0, nil
		})
	}
}

// serveConn is the per-connection state machine: Listening reads one
// control code, then either transitions to Serving (ACCEPT_CODE, a
// worker connection that goes on to exchange envelopes) or answers a
// one-shot admin query (STATS_CODE/STATS_WINDOW_CODE/PING_CODE/
// FINISH_CODE/FINISH_CODE_AWAIT) and closes (§4.4).
func (d *Dispatcher) serveConn(ctx context.Context, conn transport.Conn) {
	defer conn.Disconnect()

	code, err := conn.ReadControl(ctx)
	if err != nil {
		log.Debugf("server: control handshake failed: %v", err)
		return
	}
	switch code {
	case wire.ControlAccept:
		// falls through to the envelope-serving loop below
	case wire.ControlPing:
		_ = conn.WriteControl(ctx, wire.ControlAccept)
		return
	case wire.ControlStats:
		_ = conn.WriteControl(ctx, wire.ControlAccept)
		_ = conn.WriteData(ctx, 0, encodeStats(d.stats.Snapshot()))
		return
	case wire.ControlStatsWindow:
		_ = conn.WriteControl(ctx, wire.ControlAccept)
		_ = conn.WriteData(ctx, 0, encodeStats(d.stats.WindowSnapshot()))
		return
	case wire.ControlFinish, wire.ControlFinishAwait:
		_ = conn.WriteControl(ctx, wire.ControlAccept)
		go d.Stop(code == wire.ControlFinishAwait)
		return
	default:
		log.Debugf("server: unknown control code %v", code)
		return
	}

	state := newConnState(d.backend, d.stats)
	phase := phaseServing

	for phase == phaseServing {
		env, err := conn.ReadOperation(ctx)
		if err != nil {
			if err != io.EOF {
				log.Debugf("server: connection read error: %v", err)
			}
			return
		}

		if env.Op.IsTeardown() {
			phase = phaseClosing
			continue
		}

		if env.Op.IsAsync() {
			d.opPool.LaunchNoFuture(func() (int64, error) {
				state.dispatch(ctx, env.Op, env.Body)
				return 0, nil
			})
			continue
		}

		switch env.Op {
		case wire.OpReadFile:
			d.opPool.LaunchNoFuture(func() (int64, error) {
				_ = state.handleReadFile(ctx, conn, env.Tag, env.Body)
				return 0, nil
			})
		case wire.OpWriteFile:
			// The payload must be drained here, in the receive loop,
			// before the next ReadOperation — only the worker's disk
			// write and reply are safe to hand off (see
			// readWriteFilePayload).
			tag := env.Tag
			req, data, readErr := state.readWriteFilePayload(ctx, conn, env.Tag, env.Body)
			d.opPool.LaunchNoFuture(func() (int64, error) {
				_ = state.handleWriteFile(ctx, conn, tag, req, data, readErr)
				return 0, nil
			})
		default:
			tag := env.Tag
			op := env.Op
			body := env.Body
			d.opPool.LaunchNoFuture(func() (int64, error) {
				resp := state.dispatch(ctx, op, body)
				_ = conn.WriteOperation(ctx, wire.Envelope{Op: op, Tag: tag, Body: resp})
				return 0, nil
			})
		}
	}
}

// Stop initiates shutdown. It waits for in-flight work to drain before
// closing the pools when wait is set (FINISH_CODE_AWAIT) or the server
// runs with awaitStop; otherwise it closes them at once. The control
// acknowledgement is sent before Stop runs, so it never waits
// (§6, SUPPLEMENTED FEATURES "await_stop").
func (d *Dispatcher) Stop(wait bool) {
	atomic.StoreInt32(&d.stopping, 1)
	_ = d.transport.Close()
	if wait || d.awaitStop {
		d.inFlight.Wait()
	}
	d.connPool.Close()
	d.opPool.Close()
}
