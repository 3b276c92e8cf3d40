package framebuffer

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/fbsync/pixel"
)

// device holds the state shared by all device types.
type device struct {
	path      string
	width     int
	height    int
	depth     pixel.Depth
	order     pixel.Order
	backlight gpio.PinOut

	// mu guards everything below and the pixel memory of the embedding type.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func (d *device) setup(path string, width, height int, depth pixel.Depth, order pixel.Order, o *options) {
	if o.order != nil {
		order = *o.order
	}
	d.path = path
	d.width = width
	d.height = height
	d.depth = depth
	d.order = order
	d.backlight = o.backlight
	d.done = make(chan struct{})
}

func (d *device) Path() string          { return d.path }
func (d *device) Width() int            { return d.width }
func (d *device) Height() int           { return d.height }
func (d *device) BitDepth() pixel.Depth { return d.depth }
func (d *device) Order() pixel.Order    { return d.order }
func (d *device) Done() <-chan struct{} { return d.done }
func (d *device) size() int             { return d.width * d.height }
func (d *device) valueMask() uint32     { return 1<<uint(d.depth) - 1 }
func (d *device) inBounds(i int) bool   { return i >= 0 && i < d.size() }
func (d *device) frameSize(n int) bool  { return n == d.size() }

func (d *device) String() string {
	return fmt.Sprintf("%s %dx%d %s %s", d.path, d.width, d.height, d.depth, d.order)
}

// setBacklight is a no-op without a backlight pin.
func (d *device) setBacklight(on bool) error {
	if d.backlight == nil || d.backlight == gpio.INVALID {
		return nil
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := d.backlight.Out(level); err != nil {
		return fmt.Errorf("framebuffer: backlight %s: %w", d.backlight, err)
	}
	return nil
}

// markClosed flips the device to closed with mu held, and reports if it was
// still open.
func (d *device) markClosed() bool {
	if d.closed {
		return false
	}
	d.closed = true
	close(d.done)
	return true
}
