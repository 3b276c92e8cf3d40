package fbsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/BeatGlow/fbsync/framebuffer"
	"github.com/BeatGlow/fbsync/pixel"
)

// Errors
var (
	ErrGeometry  = errors.New("fbsync: surface does not match device geometry")
	ErrWrongMode = errors.New("fbsync: repaint requests need manual mode")
	ErrStarted   = errors.New("fbsync: scheduler already started")
	ErrStopped   = errors.New("fbsync: scheduler stopped")
)

// Frame rate limits.
const (
	DefaultFPS = 40
	MaxFPS     = 1000
)

// Mode selects what triggers a sync pass.
type Mode int

// Supported modes.
const (
	Auto   Mode = iota // Sync continuously, capped at the target frame rate
	Manual             // Sync once per repaint request
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State of a scheduler. Stopped is terminal.
type State int32

// Scheduler states.
const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config is the scheduler configuration. The zero value is an auto scheduler
// at DefaultFPS.
type Config struct {
	// Mode of operation.
	Mode Mode

	// FPS is the target frame rate, DefaultFPS if zero.
	FPS int

	// OnSync is called from the scheduler goroutine after each successful pass.
	// It may call Stop, which then returns without waiting for the loop to exit.
	OnSync func(Frame)

	// OnError is called from the scheduler goroutine for each failed pass.
	// It may call Stop, like OnSync.
	OnError func(error)

	// Logger for scheduler events, the package Logger if nil.
	Logger *slog.Logger
}

// Frame describes a completed sync pass.
type Frame struct {
	// Seq is the pass number, starting at 1.
	Seq uint64

	// Changed is the number of device pixels the pass modified.
	Changed int

	// Duration of the pass.
	Duration time.Duration
}

// Scheduler copies a surface to a device, either continuously or on request.
//
// A scheduler runs a single goroutine between Start and Stop, which performs
// all device I/O. The surface may be drawn to concurrently; a pass picks up
// whatever value each pixel has when it is read.
type Scheduler struct {
	dev      framebuffer.Device
	surface  *pixel.Surface
	codec    *pixel.Codec
	mode     Mode
	fps      int
	interval time.Duration
	onSync   func(Frame)
	onError  func(error)
	log      *slog.Logger
	errLog   rate.Sometimes
	queue    *RepaintQueue

	mu     sync.Mutex // guards state, cancel and done
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	// pass state, owned by the scheduler goroutine
	snapshot    []uint32
	native      []uint32
	frameCount  int
	windowStart time.Time

	inCallback  atomic.Bool // set while OnSync or OnError runs
	frames      atomic.Uint64
	errors      atomic.Uint64
	changed     atomic.Uint64
	measuredFPS atomic.Int64
	lastPass    atomic.Int64
}

// New creates an idle scheduler that syncs surface to dev. A nil config uses
// the defaults.
func New(dev framebuffer.Device, surface *pixel.Surface, config *Config) (*Scheduler, error) {
	if config == nil {
		config = new(Config)
	}
	if surface.Width() != dev.Width() || surface.Height() != dev.Height() {
		return nil, fmt.Errorf("%w: surface %dx%d, device %s is %dx%d", ErrGeometry,
			surface.Width(), surface.Height(), dev.Path(), dev.Width(), dev.Height())
	}
	if config.Mode != Auto && config.Mode != Manual {
		return nil, fmt.Errorf("fbsync: invalid mode %s", config.Mode)
	}

	codec, err := pixel.NewCodec(dev.BitDepth(), dev.Order())
	if err != nil {
		return nil, fmt.Errorf("fbsync: device %s: %w", dev.Path(), err)
	}

	fps := config.FPS
	if fps <= 0 {
		fps = DefaultFPS
	} else if fps > MaxFPS {
		fps = MaxFPS
	}

	log := config.Logger
	if log == nil {
		log = Logger()
	}

	size := surface.Len()
	return &Scheduler{
		dev:      dev,
		surface:  surface,
		codec:    codec,
		mode:     config.Mode,
		fps:      fps,
		interval: time.Duration(1000/fps) * time.Millisecond,
		onSync:   config.OnSync,
		onError:  config.OnError,
		log:      log.With("device", dev.Path(), "mode", config.Mode.String()),
		errLog:   rate.Sometimes{Interval: time.Second},
		queue:    NewRepaintQueue(),
		snapshot: make([]uint32, size),
		native:   make([]uint32, size),
	}, nil
}

// Mode the scheduler runs in.
func (s *Scheduler) Mode() Mode { return s.mode }

// FPS is the target frame rate.
func (s *Scheduler) FPS() int { return s.fps }

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start the scheduler goroutine. The scheduler stops when ctx is cancelled,
// when the device is closed, or when Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.state = Running
	s.log.Debug("fbsync: start", "fps", s.fps, "interval", s.interval)
	go s.run(ctx)
	return nil
}

// Stop the scheduler and wait for its goroutine to exit. A pass in progress
// is completed first. Stop may be called more than once.
//
// Called from OnSync or OnError, Stop only cancels the loop, which exits once
// the callback returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.done == nil {
		s.state = Stopped
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	if s.inCallback.Load() {
		return
	}
	<-done
}

// RequestRepaint asks for a sync pass in manual mode. Requests made while a
// pass is pending are coalesced into it. A request made before Start is
// served by the first pass.
func (s *Scheduler) RequestRepaint() error {
	if s.mode != Manual {
		return ErrWrongMode
	}
	if s.State() == Stopped {
		return ErrStopped
	}
	if !s.queue.Offer() {
		s.log.Debug("fbsync: repaint coalesced")
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.state = Stopped
		s.cancel()
		close(s.done)
		s.mu.Unlock()
		s.log.Debug("fbsync: stopped", "frames", s.frames.Load())
	}()

	s.windowStart = time.Now()
	for {
		if s.mode == Manual {
			select {
			case <-ctx.Done():
				return
			case <-s.dev.Done():
				return
			case <-s.queue.C():
			}
		} else if s.stopping(ctx) {
			return
		}

		if err := s.pass(); err != nil {
			if errors.Is(err, framebuffer.ErrClosed) {
				return
			}
			s.fail(err)
		}

		if !s.sleep(ctx) {
			return
		}
	}
}

// stopping checks for a stop condition without blocking.
func (s *Scheduler) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.dev.Done():
		return true
	default:
		return false
	}
}

// sleep for one frame interval, reports false if the scheduler should stop.
func (s *Scheduler) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.dev.Done():
		return false
	case <-t.C:
		return true
	}
}

// pass copies the surface to the device.
func (s *Scheduler) pass() error {
	start := time.Now()
	s.surface.CopyTo(s.snapshot)
	for i, v := range s.snapshot {
		s.native[i] = s.codec.EncodeARGB(v)
	}
	changed, err := s.dev.WriteFrame(s.native)
	if err != nil {
		return fmt.Errorf("fbsync: write frame: %w", err)
	}

	now := time.Now()
	took := now.Sub(start)
	seq := s.frames.Add(1)
	s.changed.Add(uint64(changed))
	s.lastPass.Store(int64(took))

	s.frameCount++
	if elapsed := now.Sub(s.windowStart).Milliseconds(); elapsed >= 1000 {
		fps := int64(s.frameCount) * 1000 / elapsed
		s.measuredFPS.Store(fps)
		s.frameCount = 0
		s.windowStart = now
		s.log.Debug("fbsync: frame rate", "fps", fps, "target", s.fps)
	}

	if s.onSync != nil {
		s.inCallback.Store(true)
		s.onSync(Frame{Seq: seq, Changed: changed, Duration: took})
		s.inCallback.Store(false)
	}
	return nil
}

func (s *Scheduler) fail(err error) {
	s.errors.Add(1)
	if s.onError != nil {
		s.inCallback.Store(true)
		s.onError(err)
		s.inCallback.Store(false)
	}
	s.errLog.Do(func() {
		s.log.Warn("fbsync: sync failed", "error", err, "errors", s.errors.Load())
	})
}

// Stats is a snapshot of scheduler statistics.
type Stats struct {
	State       State
	Mode        Mode
	TargetFPS   int
	MeasuredFPS int           // frame rate over the last full second
	Frames      uint64        // completed passes
	Errors      uint64        // failed passes
	Changed     uint64        // device pixels modified
	LastPass    time.Duration // duration of the last completed pass
}

// Stats returns the current statistics.
func (s *Scheduler) Stats() Stats {
	return Stats{
		State:       s.State(),
		Mode:        s.mode,
		TargetFPS:   s.fps,
		MeasuredFPS: int(s.measuredFPS.Load()),
		Frames:      s.frames.Load(),
		Errors:      s.errors.Load(),
		Changed:     s.changed.Load(),
		LastPass:    time.Duration(s.lastPass.Load()),
	}
}
