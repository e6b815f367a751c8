package pacer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/golog"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// fakeSource fails the captures listed in fail (1-based) and cancels the
// run after stopAfter captures.
type fakeSource struct {
	clock     *fakeClock
	cost      time.Duration
	fail      map[int]bool
	failAll   bool
	stopAfter int
	cancel    context.CancelFunc

	calls int
	buf   []byte
}

func (s *fakeSource) Capture() error {
	s.calls++
	if s.clock != nil {
		s.clock.advance(s.cost)
	}
	if s.stopAfter > 0 && s.calls >= s.stopAfter && s.cancel != nil {
		s.cancel()
	}
	if s.failAll || s.fail[s.calls] {
		return errors.New("map failed")
	}
	s.buf = []byte{byte(s.calls), 0, 0, 0}
	return nil
}

func (s *fakeSource) Buffer() []byte { return s.buf }
func (s *fakeSource) RowCount() int  { return 1 }
func (s *fakeSource) RowStride() int { return 4 }

type fakeSink struct {
	mu        sync.Mutex
	frames    [][]byte
	submitErr error
	closeErr  error
	closes    int
}

func (s *fakeSink) Submit(buf []byte, rowCount, rowStride int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return s.submitErr
	}
	s.frames = append(s.frames, append([]byte(nil), buf...))
	return nil
}

func (s *fakeSink) CloseFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakePulser struct {
	err    error
	pulses int
}

func (p *fakePulser) Pulse() error {
	p.pulses++
	return p.err
}

func testLogger() (*golog.Logger, *bytes.Buffer) {
	var out bytes.Buffer
	l := golog.New()
	l.SetOutput(&out)
	l.SetLevel("debug")
	return l, &out
}

func TestSleepFor(t *testing.T) {
	tests := []struct {
		interval, elapsed, want time.Duration
	}{
		{33 * time.Millisecond, 0, 33 * time.Millisecond},
		{33 * time.Millisecond, 10 * time.Millisecond, 23 * time.Millisecond},
		{33 * time.Millisecond, 33 * time.Millisecond, 0},
		{33 * time.Millisecond, 50 * time.Millisecond, 0},
		{time.Second / 30, 12 * time.Millisecond, time.Second/30 - 12*time.Millisecond},
	}
	for _, tt := range tests {
		if got := SleepFor(tt.interval, tt.elapsed); got != tt.want {
			t.Errorf("SleepFor(%s, %s) = %s, want %s", tt.interval, tt.elapsed, got, tt.want)
		}
	}
}

func TestConfigInterval(t *testing.T) {
	if got := (Config{FrameRate: 30}).Interval(); got != time.Second/30 {
		t.Errorf("Interval(30) = %s", got)
	}
	if got := (Config{}).Interval(); got != 0 {
		t.Errorf("Interval(0) = %s", got)
	}
}

func TestPacerTicksAtFrameRate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	src := &fakeSource{clock: clock, cost: 10 * time.Millisecond, stopAfter: 5, cancel: cancel}
	sink := &fakeSink{}
	pulser := &fakePulser{}
	logger, _ := testLogger()

	p := New(src, sink, pulser, Config{FrameRate: 30, Clock: clock}, logger)
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if p.Running() {
		t.Error("Running after the run ended")
	}
	if pulser.pulses != 1 {
		t.Errorf("pulses = %d, want 1", pulser.pulses)
	}
	if len(sink.frames) != 5 {
		t.Errorf("submitted %d frames, want 5", len(sink.frames))
	}
	if sink.closeCount() != 1 {
		t.Errorf("CloseFile called %d times, want 1", sink.closeCount())
	}

	want := time.Second/30 - 10*time.Millisecond
	if len(clock.sleeps) != 4 {
		t.Fatalf("slept %d times, want 4", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != want {
			t.Errorf("sleep %d = %s, want %s", i, d, want)
		}
	}

	if _, err := uuid.Parse(p.Session()); err != nil {
		t.Errorf("Session %q is not a uuid: %v", p.Session(), err)
	}
	st := p.Stats()
	if st.Ticks != 5 || st.Captured != 5 || st.Submitted != 5 || st.Dropped != 0 {
		t.Errorf("Stats = %+v", st)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop after Wait = %v", err)
	}
	if sink.closeCount() != 1 {
		t.Errorf("Stop closed the file again")
	}
}

func TestPacerOverrunSkipsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	src := &fakeSource{clock: clock, cost: 50 * time.Millisecond, stopAfter: 3, cancel: cancel}
	sink := &fakeSink{}
	logger, _ := testLogger()

	p := New(src, sink, nil, Config{FrameRate: 30, Clock: clock}, logger)
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("slept %v after overrunning ticks", clock.sleeps)
	}
	if st := p.Stats(); st.Overruns != 3 {
		t.Errorf("Overruns = %d, want 3", st.Overruns)
	}
}

func TestPacerDropPolicy(t *testing.T) {
	tests := []struct {
		name         string
		policy       DropPolicy
		wantFrames   []byte
		wantRepeated uint64
	}{
		// Captures 1 and 3 fail. Tick 1 has nothing to repeat.
		{"repeat", DropRepeat, []byte{2, 2, 4, 5}, 1},
		{"skip", DropSkip, []byte{2, 4, 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			clock := newFakeClock()
			src := &fakeSource{clock: clock, fail: map[int]bool{1: true, 3: true}, stopAfter: 5, cancel: cancel}
			sink := &fakeSink{}
			logger, _ := testLogger()

			p := New(src, sink, nil, Config{FrameRate: 60, DropPolicy: tt.policy, Clock: clock}, logger)
			if err := p.Start(ctx); err != nil {
				t.Fatal(err)
			}
			if err := p.Wait(); err != nil {
				t.Fatal(err)
			}

			var got []byte
			for _, f := range sink.frames {
				got = append(got, f[0])
			}
			if !bytes.Equal(got, tt.wantFrames) {
				t.Errorf("frames = %v, want %v", got, tt.wantFrames)
			}
			st := p.Stats()
			if st.Dropped != 2 || st.Repeated != tt.wantRepeated {
				t.Errorf("Stats = %+v", st)
			}
		})
	}
}

func TestPacerDropBudget(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{clock: clock, failAll: true}
	sink := &fakeSink{}
	logger, out := testLogger()

	p := New(src, sink, nil, Config{FrameRate: 30, MaxDroppedFrames: 3, Clock: clock}, logger)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := p.Wait()
	if !errors.Is(err, ErrDropBudgetExceeded) {
		t.Fatalf("Wait = %v, want ErrDropBudgetExceeded", err)
	}
	if src.calls != 3 {
		t.Errorf("captures = %d, want 3", src.calls)
	}
	if sink.closeCount() != 1 {
		t.Errorf("CloseFile called %d times, want 1", sink.closeCount())
	}
	if !bytes.Contains(out.Bytes(), []byte("consecutive dropped frames")) {
		t.Errorf("budget stop not logged:\n%s", out.String())
	}
	if err := p.Stop(); !errors.Is(err, ErrDropBudgetExceeded) {
		t.Errorf("Stop = %v, want the run's error", err)
	}
}

func TestPacerSubmitErrorsAreNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	src := &fakeSource{clock: clock, stopAfter: 4, cancel: cancel}
	sink := &fakeSink{submitErr: errors.New("write failed")}
	logger, out := testLogger()

	p := New(src, sink, nil, Config{FrameRate: 30, Clock: clock}, logger)
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait = %v, submit errors must not end the run", err)
	}
	if st := p.Stats(); st.SubmitErrors != 4 || st.Ticks != 4 {
		t.Errorf("Stats = %+v", st)
	}
	// The sink reports its own failures.
	if bytes.Contains(out.Bytes(), []byte("submit failed")) {
		t.Errorf("pacer logged a sink failure:\n%s", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("submit_errors=4")) {
		t.Errorf("summary does not count submit errors:\n%s", out.String())
	}
}

func TestPacerPulseFailureDoesNotStopRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	src := &fakeSource{clock: clock, stopAfter: 2, cancel: cancel}
	sink := &fakeSink{}
	pulser := &fakePulser{err: errors.New("open COM1: access denied")}
	logger, out := testLogger()

	p := New(src, sink, pulser, Config{FrameRate: 30, Clock: clock}, logger)
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(sink.frames) != 2 {
		t.Errorf("submitted %d frames, want 2", len(sink.frames))
	}
	if !bytes.Contains(out.Bytes(), []byte("access denied")) {
		t.Errorf("pulse failure not logged:\n%s", out.String())
	}
}

func TestPacerStopJoinsRun(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{closeErr: errors.New("trailer failed")}
	logger, _ := testLogger()

	p := New(src, sink, nil, Config{FrameRate: 200}, logger)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.Running() {
		t.Error("not running after Start")
	}
	time.Sleep(30 * time.Millisecond)

	if err := p.Stop(); err == nil || err.Error() != "trailer failed" {
		t.Errorf("Stop = %v, want the CloseFile error", err)
	}
	if p.Running() {
		t.Error("running after Stop")
	}
	if sink.closeCount() != 1 {
		t.Errorf("CloseFile called %d times, want 1", sink.closeCount())
	}
	if src.calls == 0 {
		t.Error("no ticks ran")
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
}

// overlapSource records the most Capture calls ever in flight at once.
type overlapSource struct {
	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (s *overlapSource) Capture() error {
	n := s.inflight.Add(1)
	for {
		m := s.peak.Load()
		if n <= m || s.peak.CompareAndSwap(m, n) {
			break
		}
	}
	s.calls.Add(1)
	time.Sleep(time.Millisecond)
	s.inflight.Add(-1)
	return nil
}

func (s *overlapSource) Buffer() []byte { return []byte{0, 0, 0, 0} }
func (s *overlapSource) RowCount() int  { return 1 }
func (s *overlapSource) RowStride() int { return 4 }

type slowPulser struct {
	delay time.Duration
}

func (p slowPulser) Pulse() error {
	time.Sleep(p.delay)
	return nil
}

func TestPacerConcurrentStartRunsOneLoop(t *testing.T) {
	src := &overlapSource{}
	sink := &fakeSink{}
	logger, _ := testLogger()

	p := New(src, sink, slowPulser{delay: 20 * time.Millisecond}, Config{FrameRate: 200}, logger)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Start(context.Background()); err != nil {
				t.Errorf("Start: %v", err)
			}
		}()
	}
	wg.Wait()
	time.Sleep(20 * time.Millisecond)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	closes := sink.closeCount()
	if closes != 2 {
		t.Errorf("closes when Stop returned = %d, want 2", closes)
	}

	time.Sleep(20 * time.Millisecond)
	if n := sink.closeCount(); n != closes {
		t.Errorf("CloseFile ran after Stop returned: %d -> %d", closes, n)
	}
	if peak := src.peak.Load(); peak != 1 {
		t.Errorf("peak concurrent captures = %d, want 1", peak)
	}
	if src.calls.Load() == 0 {
		t.Error("no ticks ran")
	}
	if p.Running() {
		t.Error("running after Stop")
	}
}

func TestPacerRestartStopsPreviousRun(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{}
	logger, _ := testLogger()

	p := New(src, sink, nil, Config{FrameRate: 100}, logger)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := p.Session()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.closeCount() != 1 {
		t.Errorf("previous run not closed before restart: closes=%d", sink.closeCount())
	}
	if p.Session() == first {
		t.Error("restart reused the session id")
	}

	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if sink.closeCount() != 2 {
		t.Errorf("closes = %d, want 2", sink.closeCount())
	}
}

func TestPacerContextCancelEndsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	sink := &fakeSink{}

	p := New(src, sink, nil, Config{FrameRate: 100}, nil)
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}
	if p.Running() {
		t.Error("running after cancel")
	}
	if sink.closeCount() != 1 {
		t.Errorf("closes = %d, want 1", sink.closeCount())
	}
}

func TestPacerInvalidFrameRate(t *testing.T) {
	sink := &fakeSink{}
	logger, _ := testLogger()
	p := New(&fakeSource{}, sink, nil, Config{}, logger)
	if err := p.Start(context.Background()); !errors.Is(err, ErrInvalidFrameRate) {
		t.Errorf("Start = %v, want ErrInvalidFrameRate", err)
	}
	if p.Running() || sink.closeCount() != 0 {
		t.Error("invalid start began a run")
	}
}

func TestParseDropPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DropPolicy
		wantErr bool
	}{
		{"repeat", DropRepeat, false},
		{"", DropRepeat, false},
		{"SKIP", DropSkip, false},
		{"drop", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDropPolicy(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParseDropPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
	if DropSkip.String() != "skip" || DropRepeat.String() != "repeat" {
		t.Error("DropPolicy.String mismatch")
	}
}
