package server

import (
	"sync"
	"time"

	"github.com/xpn-project/xpn/wire"
)

// statsWindow is how long a windowed counter stays in the rolling
// snapshot before being dropped (§ SUPPLEMENTED FEATURES: "rolling
// window of per-opcode counters").
const statsWindow = 60 * time.Second

// Stats tracks per-opcode counts two ways at once: an all-time total
// and a rolling window, answering STATS_CODE and STATS_WINDOW_CODE
// respectively on the control side-channel (§4.4).
type Stats struct {
	mu      sync.Mutex
	allTime map[wire.Opcode]uint64
	recent  []statEvent
}

type statEvent struct {
	op wire.Opcode
	at time.Time
}

// NewStats constructs an empty Stats tracker.
func NewStats() *Stats {
	return &Stats{allTime: make(map[wire.Opcode]uint64)}
}

func (s *Stats) record(op wire.Opcode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allTime[op]++
	s.recent = append(s.recent, statEvent{op: op, at: time.Now()})
	s.pruneLocked(time.Now())
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-statsWindow)
	i := 0
	for ; i < len(s.recent); i++ {
		if s.recent[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		s.recent = s.recent[i:]
	}
}

// Snapshot returns the all-time per-opcode counters.
func (s *Stats) Snapshot() map[wire.Opcode]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[wire.Opcode]uint64, len(s.allTime))
	for op, n := range s.allTime {
		out[op] = n
	}
	return out
}

// WindowSnapshot returns per-opcode counters over the trailing
// statsWindow.
func (s *Stats) WindowSnapshot() map[wire.Opcode]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	out := make(map[wire.Opcode]uint64)
	for _, ev := range s.recent {
		out[ev.op]++
	}
	return out
}
