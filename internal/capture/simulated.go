package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// SimulatedDevice yields one sample per interval of its clock
type SimulatedDevice struct {
	clock    clockwork.Clock
	interval time.Duration
	open     atomic.Int32
}

func NewSimulatedDevice(clock clockwork.Clock, interval time.Duration) *SimulatedDevice {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SimulatedDevice{clock: clock, interval: interval}
}

// Open returns the number of streams not yet closed
func (d *SimulatedDevice) Open() int {
	return int(d.open.Load())
}

func (d *SimulatedDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &simulatedStream{
		progress: make(chan int),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		device:   d,
	}
	d.open.Add(1)

	ticker := d.clock.NewTicker(d.interval)
	go s.run(ticker)

	return s, nil
}

type simulatedStream struct {
	progress chan int
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	device   *SimulatedDevice
}

func (s *simulatedStream) run(ticker clockwork.Ticker) {
	defer close(s.done)
	defer close(s.progress)
	defer ticker.Stop()

	samples := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.Chan():
			samples++
			select {
			case s.progress <- samples:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *simulatedStream) Progress() <-chan int {
	return s.progress
}

func (s *simulatedStream) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.device.open.Add(-1)
	})
	return nil
}
