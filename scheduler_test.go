package fbsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BeatGlow/fbsync/framebuffer"
	"github.com/BeatGlow/fbsync/pixel"
)

func testScheduler(t *testing.T, path string, config *Config) (*Scheduler, framebuffer.Device) {
	t.Helper()
	dev, err := framebuffer.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dev.Close() })

	s, err := New(dev, pixel.NewSurface(dev.Width(), dev.Height()), config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Stop)
	return s, dev
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew(t *testing.T) {
	dev, err := framebuffer.Open("dummy_20x10")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if _, err = New(dev, pixel.NewSurface(10, 10), nil); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected ErrGeometry, got %v", err)
	}
	if _, err = New(dev, pixel.NewSurface(20, 10), &Config{Mode: Mode(7)}); err == nil {
		t.Error("expected an error for an invalid mode")
	}

	tests := []struct {
		FPS      int
		Want     int
		Interval time.Duration
	}{
		{0, DefaultFPS, 25 * time.Millisecond},
		{-1, DefaultFPS, 25 * time.Millisecond},
		{60, 60, 16 * time.Millisecond},
		{MaxFPS * 2, MaxFPS, time.Millisecond},
	}
	for _, test := range tests {
		s, err := New(dev, pixel.NewSurface(20, 10), &Config{FPS: test.FPS})
		if err != nil {
			t.Fatal(err)
		}
		if v := s.FPS(); v != test.Want {
			t.Errorf("FPS %d: expected target %d, got %d", test.FPS, test.Want, v)
		}
		if s.interval != test.Interval {
			t.Errorf("FPS %d: expected interval %s, got %s", test.FPS, test.Interval, s.interval)
		}
		if v := s.State(); v != Idle {
			t.Errorf("expected idle, got %s", v)
		}
	}
}

func TestSchedulerPass(t *testing.T) {
	tests := []struct {
		Path  string
		Order pixel.Order
		Want  uint32
	}{
		{"dummy_4x4x8", pixel.RGB, 0xe0},
		{"dummy_4x4x16", pixel.RGB, 0xf800},
		{"dummy_4x4x16", pixel.BGR, 0x001f},
		{"dummy_4x4x24", pixel.BGR, 0x0000ff},
	}
	for _, test := range tests {
		dev, err := framebuffer.Open(test.Path, framebuffer.WithOrder(test.Order))
		if err != nil {
			t.Fatal(err)
		}
		surface := pixel.NewSurface(4, 4)
		s, err := New(dev, surface, nil)
		if err != nil {
			t.Fatal(err)
		}

		surface.SetARGB(1, 2, pixel.NewARGB(0xff, 0, 0))
		if err = s.pass(); err != nil {
			t.Fatal(err)
		}
		if v, _ := dev.ReadPixel(2*4 + 1); v != test.Want {
			t.Errorf("%s %s: expected red as %#06x, got %#06x", test.Path, test.Order, test.Want, v)
		}
		if v, _ := dev.ReadPixel(0); v != 0 {
			t.Errorf("%s %s: expected black as 0, got %#06x", test.Path, test.Order, v)
		}

		stats := s.Stats()
		if stats.Frames != 1 || stats.Changed != 1 {
			t.Errorf("%s %s: expected 1 frame with 1 changed pixel, got %+v", test.Path, test.Order, stats)
		}
		_ = dev.Close()
	}
}

func TestAutoFrameRate(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	s, _ := testScheduler(t, "dummy_64x48", &Config{FPS: 40})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Second)
	s.Stop()

	if n := s.Stats().Frames; n < 30 || n > 50 {
		t.Errorf("expected 30-50 passes at 40 FPS over one second, got %d", n)
	}
}

func TestManualRateCap(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	s, _ := testScheduler(t, "dummy_64x48", &Config{Mode: Manual, FPS: 10})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var (
		requests int
		deadline = time.Now().Add(time.Second)
	)
	for time.Now().Before(deadline) {
		if err := s.RequestRepaint(); err != nil {
			t.Fatal(err)
		}
		requests++
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	if n := s.Stats().Frames; n < 7 || n > 13 {
		t.Errorf("expected 7-13 passes for %d requests at 10 FPS over one second, got %d", requests, n)
	}
}

func TestStopFromOnSync(t *testing.T) {
	var s *Scheduler
	s, _ = testScheduler(t, "dummy_4x4", &Config{
		FPS: MaxFPS,
		OnSync: func(f Frame) {
			if f.Seq == 3 {
				s.Stop()
			}
		},
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "the scheduler to stop", func() bool { return s.State() == Stopped })
	if n := s.Stats().Frames; n != 3 {
		t.Errorf("expected the loop to exit after the third pass, got %d passes", n)
	}
	s.Stop()
}

func TestStopFromOnError(t *testing.T) {
	dev, err := framebuffer.Open("dummy_4x4")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	var s *Scheduler
	s, err = New(failingDevice{dev}, pixel.NewSurface(4, 4), &Config{
		FPS:     MaxFPS,
		OnError: func(error) { s.Stop() },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err = s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "the scheduler to stop", func() bool { return s.State() == Stopped })
	if n := s.Stats().Errors; n != 1 {
		t.Errorf("expected the loop to exit after the first failure, got %d errors", n)
	}
}

func TestMeasuredFPS(t *testing.T) {
	s, _ := testScheduler(t, "dummy_4x4", nil)
	s.windowStart = time.Now().Add(-2 * time.Second)
	s.frameCount = 99
	if err := s.pass(); err != nil {
		t.Fatal(err)
	}
	if v := s.Stats().MeasuredFPS; v < 49 || v > 50 {
		t.Errorf("expected 100 frames over 2s to measure 50 FPS, got %d", v)
	}
	if s.frameCount != 0 {
		t.Errorf("expected the window to reset, got %d frames", s.frameCount)
	}

	// A partial window keeps the last measurement.
	if err := s.pass(); err != nil {
		t.Fatal(err)
	}
	if v := s.Stats().MeasuredFPS; v < 49 || v > 50 {
		t.Errorf("expected the measurement to hold, got %d", v)
	}
}

func TestAutoSyncsSurface(t *testing.T) {
	var frames atomic.Uint64
	dev, err := framebuffer.Open("dummy_8x8")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	surface := pixel.NewSurface(8, 8)
	s, err := New(dev, surface, &Config{
		FPS:    MaxFPS,
		OnSync: func(f Frame) { frames.Store(f.Seq) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err = s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	surface.SetARGB(3, 3, pixel.White)
	waitFor(t, "the pixel to reach the device", func() bool {
		v, _ := dev.ReadPixel(3*8 + 3)
		return v == 0xffffff
	})
	if frames.Load() == 0 {
		t.Error("OnSync was not called")
	}
}

func TestAutoRequestRepaint(t *testing.T) {
	s, _ := testScheduler(t, "dummy_4x4", nil)
	if err := s.RequestRepaint(); !errors.Is(err, ErrWrongMode) {
		t.Errorf("expected ErrWrongMode, got %v", err)
	}
}

func TestManualCoalesce(t *testing.T) {
	var (
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	s, _ := testScheduler(t, "dummy_4x4", &Config{
		Mode: Manual,
		FPS:  MaxFPS,
		OnSync: func(f Frame) {
			if f.Seq == 1 {
				close(entered)
				<-release
			}
		},
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.RequestRepaint(); err != nil {
		t.Fatal(err)
	}

	<-entered
	for i := 0; i < 100; i++ {
		if err := s.RequestRepaint(); err != nil {
			t.Fatal(err)
		}
	}
	close(release)

	waitFor(t, "the second pass", func() bool { return s.Stats().Frames >= 2 })
	time.Sleep(50 * time.Millisecond)
	if n := s.Stats().Frames; n != 2 {
		t.Errorf("expected 100 requests during a pass to coalesce into 1 pass, got %d passes", n)
	}
}

func TestManualPendingBeforeStart(t *testing.T) {
	s, _ := testScheduler(t, "dummy_4x4", &Config{Mode: Manual})
	if err := s.RequestRepaint(); err != nil {
		t.Fatal(err)
	}
	if err := s.RequestRepaint(); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Frames != 0 {
		t.Fatal("pass ran before start")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the first pass", func() bool { return s.Stats().Frames == 1 })
	time.Sleep(50 * time.Millisecond)
	if n := s.Stats().Frames; n != 1 {
		t.Errorf("expected a single pass, got %d", n)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	s, _ := testScheduler(t, "dummy_4x4", &Config{Mode: Manual})
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if v := s.State(); v != Running {
		t.Errorf("expected running, got %s", v)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted, got %v", err)
	}

	s.Stop()
	s.Stop()
	if v := s.State(); v != Stopped {
		t.Errorf("expected stopped, got %s", v)
	}
	if err := s.RequestRepaint(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted after stop, got %v", err)
	}
}

func TestStopIdle(t *testing.T) {
	s, _ := testScheduler(t, "dummy_4x4", nil)
	s.Stop()
	if v := s.State(); v != Stopped {
		t.Errorf("expected stopped, got %s", v)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStarted) {
		t.Errorf("expected ErrStarted, got %v", err)
	}
}

func TestStopOnContextCancel(t *testing.T) {
	for _, mode := range []Mode{Auto, Manual} {
		s, _ := testScheduler(t, "dummy_4x4", &Config{Mode: mode})
		ctx, cancel := context.WithCancel(context.Background())
		if err := s.Start(ctx); err != nil {
			t.Fatal(err)
		}
		cancel()
		waitFor(t, mode.String()+" scheduler to stop", func() bool { return s.State() == Stopped })
	}
}

func TestStopOnDeviceClose(t *testing.T) {
	for _, mode := range []Mode{Auto, Manual} {
		s, dev := testScheduler(t, "dummy_4x4", &Config{Mode: mode})
		if err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := dev.Close(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, mode.String()+" scheduler to stop", func() bool { return s.State() == Stopped })
		if n := s.Stats().Errors; n != 0 {
			t.Errorf("%s: expected a closed device to stop without errors, got %d", mode, n)
		}
	}
}

// failingDevice fails every frame write.
type failingDevice struct {
	framebuffer.Device
}

var errTest = errors.New("test: write failed")

func (failingDevice) WriteFrame([]uint32) (int, error) { return 0, errTest }

func TestPassErrors(t *testing.T) {
	dev, err := framebuffer.Open("dummy_4x4")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	var failed atomic.Int32
	s, err := New(failingDevice{dev}, pixel.NewSurface(4, 4), &Config{
		FPS: MaxFPS,
		OnError: func(err error) {
			if errors.Is(err, errTest) {
				failed.Add(1)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err = s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "repeated failures", func() bool { return failed.Load() >= 3 })
	stats := s.Stats()
	if stats.State != Running {
		t.Errorf("expected the scheduler to keep running, got %s", stats.State)
	}
	if stats.Errors < 3 {
		t.Errorf("expected at least 3 errors, got %d", stats.Errors)
	}
	if stats.Frames != 0 {
		t.Errorf("expected no completed frames, got %d", stats.Frames)
	}
}
