// Package pacer drives the capture-to-encode loop at a fixed frame rate.
//
// A Pacer owns one goroutine per run. Each tick captures a frame from the
// Source, submits it to the Sink and sleeps for whatever is left of the
// frame interval. When the run ends, for any reason, the Sink's file is
// closed exactly once.
package pacer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/golog"
)

var (
	// ErrInvalidFrameRate is returned by Start for a non-positive frame rate.
	ErrInvalidFrameRate = errors.New("pacer: frame rate must be positive")

	// ErrDropBudgetExceeded ends a run after MaxDroppedFrames consecutive
	// capture failures.
	ErrDropBudgetExceeded = errors.New("pacer: dropped frame budget exceeded")
)

// Source is the frame producer, normally a *capture.FrameSource.
type Source interface {
	Capture() error
	Buffer() []byte
	RowCount() int
	RowStride() int
}

// Sink is the frame consumer, normally a *vrrec.VideoWriter. The sink
// logs its own failures; the pacer only counts them.
type Sink interface {
	Submit(buf []byte, rowCount, rowStride int) error
	CloseFile() error
}

// Pulser emits the synchronization pulse at the start of a run.
type Pulser interface {
	Pulse() error
}

// DropPolicy decides what a tick does when Capture fails.
type DropPolicy int

const (
	// DropRepeat resubmits the last captured frame so the file keeps its
	// cadence. Ticks before the first good capture are skipped.
	DropRepeat DropPolicy = iota
	// DropSkip submits nothing for the tick.
	DropSkip
)

func (d DropPolicy) String() string {
	switch d {
	case DropRepeat:
		return "repeat"
	case DropSkip:
		return "skip"
	default:
		return fmt.Sprintf("DropPolicy(%d)", int(d))
	}
}

// ParseDropPolicy accepts "repeat" or "skip".
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repeat", "":
		return DropRepeat, nil
	case "skip":
		return DropSkip, nil
	default:
		return 0, fmt.Errorf("pacer: unknown drop policy %q", s)
	}
}

// Config configures a Pacer.
type Config struct {
	FrameRate  int
	DropPolicy DropPolicy
	// MaxDroppedFrames ends the run after that many consecutive capture
	// failures. Zero means unlimited.
	MaxDroppedFrames int
	// StatsEvery logs the counters at Info this often. Zero disables it.
	StatsEvery time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
}

// Interval returns the frame interval for the configured rate.
func (c Config) Interval() time.Duration {
	if c.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Stats are the counters of the current or last run.
type Stats struct {
	Session      string
	Ticks        uint64
	Captured     uint64
	Dropped      uint64
	Repeated     uint64
	Submitted    uint64
	SubmitErrors uint64
	Overruns     uint64
}

// run is one Start..Stop cycle. err is written before done is closed.
type run struct {
	session uuid.UUID
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Pacer runs the capture loop.
type Pacer struct {
	src    Source
	sink   Sink
	pulser Pulser
	cfg    Config
	clock  Clock
	logger *golog.Logger

	// startMu serializes Start and Stop so at most one loop exists.
	startMu sync.Mutex
	mu      sync.Mutex
	cur     *run

	running atomic.Bool

	session      atomic.Value // string
	ticks        atomic.Uint64
	captured     atomic.Uint64
	dropped      atomic.Uint64
	repeated     atomic.Uint64
	submitted    atomic.Uint64
	submitErrors atomic.Uint64
	overruns     atomic.Uint64
}

// New returns a stopped Pacer. pulser may be nil. A nil logger uses
// golog.Default.
func New(src Source, sink Sink, pulser Pulser, cfg Config, logger *golog.Logger) *Pacer {
	if logger == nil {
		logger = golog.Default
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	p := &Pacer{
		src:    src,
		sink:   sink,
		pulser: pulser,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
	p.session.Store("")
	return p
}

// Start stops any previous run, emits the synchronization pulse and
// starts the loop. It returns as soon as the loop goroutine is running.
// The run also ends when ctx is cancelled.
func (p *Pacer) Start(ctx context.Context) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if err := p.stop(); err != nil {
		p.logger.Warnf("previous run ended with error: %v", err)
	}

	interval := p.cfg.Interval()
	if interval <= 0 {
		p.logger.Errorf("start failed framerate=%d: %v", p.cfg.FrameRate, ErrInvalidFrameRate)
		return ErrInvalidFrameRate
	}

	if p.pulser != nil {
		if err := p.pulser.Pulse(); err != nil {
			p.logger.Errorf("sync pulse failed: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		session: uuid.New(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	p.resetStats(r.session.String())

	p.mu.Lock()
	p.cur = r
	p.mu.Unlock()

	p.running.Store(true)
	p.logger.Infof("pacing started session=%s framerate=%d interval=%s drop=%s",
		r.session, p.cfg.FrameRate, interval, p.cfg.DropPolicy)

	go p.loop(runCtx, r, interval)
	return nil
}

// Stop ends the current run and blocks until its goroutine has closed the
// file. It returns the run's error, nil if no run was active.
func (p *Pacer) Stop() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	return p.stop()
}

func (p *Pacer) stop() error {
	p.mu.Lock()
	r := p.cur
	p.cur = nil
	p.mu.Unlock()
	if r == nil {
		return nil
	}

	p.running.Store(false)
	r.cancel()
	<-r.done
	return r.err
}

// Wait blocks until the current run ends on its own or is stopped and
// returns its error. It does not stop the run.
func (p *Pacer) Wait() error {
	p.mu.Lock()
	r := p.cur
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Running reports whether a run's loop is active.
func (p *Pacer) Running() bool {
	return p.running.Load()
}

// Session returns the id of the current or last run, empty before the
// first Start.
func (p *Pacer) Session() string {
	return p.session.Load().(string)
}

// Stats returns the counters of the current or last run.
func (p *Pacer) Stats() Stats {
	return Stats{
		Session:      p.Session(),
		Ticks:        p.ticks.Load(),
		Captured:     p.captured.Load(),
		Dropped:      p.dropped.Load(),
		Repeated:     p.repeated.Load(),
		Submitted:    p.submitted.Load(),
		SubmitErrors: p.submitErrors.Load(),
		Overruns:     p.overruns.Load(),
	}
}

func (p *Pacer) resetStats(session string) {
	p.session.Store(session)
	p.ticks.Store(0)
	p.captured.Store(0)
	p.dropped.Store(0)
	p.repeated.Store(0)
	p.submitted.Store(0)
	p.submitErrors.Store(0)
	p.overruns.Store(0)
}

func (p *Pacer) loop(ctx context.Context, r *run, interval time.Duration) {
	defer close(r.done)

	r.err = p.tick(ctx, interval)

	p.running.Store(false)
	if err := p.sink.CloseFile(); err != nil && r.err == nil {
		r.err = err
	}

	st := p.Stats()
	p.logger.Infof("pacing stopped session=%s ticks=%d captured=%d dropped=%d repeated=%d submit_errors=%d overruns=%d",
		r.session, st.Ticks, st.Captured, st.Dropped, st.Repeated, st.SubmitErrors, st.Overruns)
}

// tick runs until the pacer is stopped, ctx ends or the drop budget is
// spent.
func (p *Pacer) tick(ctx context.Context, interval time.Duration) error {
	var (
		haveFrame   bool
		consecutive int
		failing     bool
		lastStats   = p.clock.Now()
	)

	for p.running.Load() && ctx.Err() == nil {
		start := p.clock.Now()
		p.ticks.Add(1)

		submit := true
		if err := p.src.Capture(); err != nil {
			p.dropped.Add(1)
			consecutive++
			if p.cfg.MaxDroppedFrames > 0 && consecutive >= p.cfg.MaxDroppedFrames {
				p.logger.Errorf("stopping after %d consecutive dropped frames: %v", consecutive, err)
				return fmt.Errorf("%w: %d consecutive: %w", ErrDropBudgetExceeded, consecutive, err)
			}
			submit = p.cfg.DropPolicy == DropRepeat && haveFrame
			if submit {
				p.repeated.Add(1)
			}
		} else {
			p.captured.Add(1)
			haveFrame = true
			consecutive = 0
		}

		if submit {
			if err := p.sink.Submit(p.src.Buffer(), p.src.RowCount(), p.src.RowStride()); err != nil {
				p.submitErrors.Add(1)
				failing = true
			} else {
				p.submitted.Add(1)
				if failing {
					p.logger.Infof("submit recovered tick=%d errors=%d", p.ticks.Load(), p.submitErrors.Load())
					failing = false
				}
			}
		}

		now := p.clock.Now()
		if p.cfg.StatsEvery > 0 && now.Sub(lastStats) >= p.cfg.StatsEvery {
			st := p.Stats()
			p.logger.Infof("pacing stats session=%s ticks=%d captured=%d dropped=%d overruns=%d",
				st.Session, st.Ticks, st.Captured, st.Dropped, st.Overruns)
			lastStats = now
		}

		elapsed := now.Sub(start)
		d := SleepFor(interval, elapsed)
		if d == 0 {
			p.overruns.Add(1)
			p.logger.Debugf("tick overran interval=%s elapsed=%s", interval, elapsed)
			continue
		}
		if err := p.clock.Sleep(ctx, d); err != nil {
			break
		}
	}
	return nil
}

// SleepFor returns how long to sleep after a tick that took elapsed,
// never negative.
func SleepFor(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}
