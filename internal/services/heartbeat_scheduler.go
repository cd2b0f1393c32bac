package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

type HeartbeatState int32

const (
	HeartbeatIdle HeartbeatState = iota
	HeartbeatRunning
	HeartbeatStopped
)

func (s HeartbeatState) String() string {
	switch s {
	case HeartbeatRunning:
		return "running"
	case HeartbeatStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// heartbeatRecorder is the slice of ActivityTracker the scheduler writes through
type heartbeatRecorder interface {
	RecordHeartbeat(ctx context.Context, uid string) error
}

// Heartbeat is the handle of one running heartbeat. Stop is safe to call any
// number of times from any goroutine; owners should defer it.
type Heartbeat struct {
	uid   string
	state atomic.Int32
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func (h *Heartbeat) UID() string {
	return h.uid
}

func (h *Heartbeat) State() HeartbeatState {
	return HeartbeatState(h.state.Load())
}

// Done is closed once the heartbeat has stopped for any reason
func (h *Heartbeat) Done() <-chan struct{} {
	return h.done
}

// Stop ends the heartbeat and waits until no further write can happen
func (h *Heartbeat) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

type heartbeatScheduler struct {
	recorder heartbeatRecorder
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*Heartbeat
}

func NewHeartbeatScheduler(recorder heartbeatRecorder, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) HeartbeatService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &heartbeatScheduler{
		recorder: recorder,
		clock:    clock,
		interval: interval,
		logger:   logger,
		active:   make(map[string]*Heartbeat),
	}
}

// Start refuses a second heartbeat for a uid that already has one
func (s *heartbeatScheduler) Start(ctx context.Context, uid string) (*Heartbeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[uid]; ok {
		return nil, ErrHeartbeatActive
	}

	h := &Heartbeat{
		uid:  uid,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.state.Store(int32(HeartbeatRunning))
	s.active[uid] = h

	ticker := s.clock.NewTicker(s.interval)
	go s.run(ctx, h, ticker)

	s.logger.Debug("Heartbeat started", "uid", uid, "interval", s.interval)
	return h, nil
}

func (s *heartbeatScheduler) run(ctx context.Context, h *Heartbeat, ticker clockwork.Ticker) {
	defer func() {
		ticker.Stop()

		s.mu.Lock()
		if s.active[h.uid] == h {
			delete(s.active, h.uid)
		}
		s.mu.Unlock()

		h.state.Store(int32(HeartbeatStopped))
		close(h.done)
		s.logger.Debug("Heartbeat stopped", "uid", h.uid)
	}()

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		// A stop that raced the tick wins
		select {
		case <-h.stop:
			return
		default:
		}

		err := s.recorder.RecordHeartbeat(ctx, h.uid)
		switch {
		case errors.Is(err, ErrRecordNotFound):
			s.logger.Info("Activity record gone, stopping heartbeat", "uid", h.uid)
			return
		case err != nil:
			s.logger.Warn("Heartbeat write failed", "uid", h.uid, "error", err)
		}
	}
}

func (s *heartbeatScheduler) Stop(uid string) bool {
	s.mu.Lock()
	h, ok := s.active[uid]
	s.mu.Unlock()

	if !ok {
		return false
	}
	h.Stop()
	return true
}

func (s *heartbeatScheduler) Active(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[uid]
	return ok
}

// StopAll ends every running heartbeat; used at shutdown
func (s *heartbeatScheduler) StopAll() {
	s.mu.Lock()
	handles := make([]*Heartbeat, 0, len(s.active))
	for _, h := range s.active {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}
