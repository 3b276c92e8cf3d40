package framebuffer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BeatGlow/fbsync/pixel"
)

// Dummy device defaults.
const (
	DummyPath          = "dummy"
	DummyDefaultWidth  = 320
	DummyDefaultHeight = 240
	DummyDefaultDepth  = pixel.Depth24
)

// Dummy is an in-memory device. It behaves like a hardware framebuffer without
// touching any hardware.
type Dummy struct {
	device
	pix []uint32
}

// IsDummy reports if name selects a dummy device.
func IsDummy(name string) bool {
	return name == DummyPath || strings.HasPrefix(name, DummyPath+"_")
}

// NewDummy creates a dummy device of w×h pixels.
func NewDummy(w, h int, depth pixel.Depth, order pixel.Order) (*Dummy, error) {
	return newDummy(fmt.Sprintf("%s_%dx%dx%d", DummyPath, w, h, depth), w, h, depth, &options{order: &order})
}

func openDummy(name string, o *options) (*Dummy, error) {
	w, h, depth, err := parseDummy(name)
	if err != nil {
		return nil, err
	}
	if o.depth != 0 {
		depth = o.depth
	}
	return newDummy(name, w, h, depth, o)
}

func newDummy(name string, w, h int, depth pixel.Depth, o *options) (*Dummy, error) {
	if w <= 0 || h <= 0 {
		return nil, openError(name, ErrOpenFailed, fmt.Errorf("invalid size %dx%d", w, h))
	}
	if !depth.Valid() {
		return nil, openError(name, ErrUnsupportedBitDepth, fmt.Errorf("%d bits per pixel", int(depth)))
	}
	d := &Dummy{pix: make([]uint32, w*h)}
	d.setup(name, w, h, depth, pixel.RGB, o)
	return d, nil
}

// parseDummy parses "dummy", "dummy_<w>x<h>" and "dummy_<w>x<h>x<depth>".
func parseDummy(name string) (w, h int, depth pixel.Depth, err error) {
	if name == DummyPath {
		return DummyDefaultWidth, DummyDefaultHeight, DummyDefaultDepth, nil
	}

	part := strings.Split(strings.TrimPrefix(name, DummyPath+"_"), "x")
	if len(part) != 2 && len(part) != 3 {
		return 0, 0, 0, openError(name, ErrOpenFailed, fmt.Errorf("expected %s_<width>x<height>[x<depth>]", DummyPath))
	}

	var n [3]int
	n[2] = int(DummyDefaultDepth)
	for i, s := range part {
		if n[i], err = strconv.Atoi(s); err != nil {
			return 0, 0, 0, openError(name, ErrOpenFailed, err)
		}
	}
	return n[0], n[1], pixel.Depth(n[2]), nil
}

func (d *Dummy) ReadPixel(i int) (uint32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, ErrClosed
	}
	if !d.inBounds(i) {
		return 0, ErrBounds
	}
	return d.pix[i], nil
}

func (d *Dummy) WritePixel(i int, v uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.inBounds(i) {
		return ErrBounds
	}
	d.pix[i] = v & d.valueMask()
	return nil
}

func (d *Dummy) ReadFrame(dst []uint32) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	if len(dst) < d.size() {
		return ErrBounds
	}
	copy(dst, d.pix)
	return nil
}

func (d *Dummy) WriteFrame(src []uint32) (changed int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if !d.frameSize(len(src)) {
		return 0, ErrBounds
	}
	mask := d.valueMask()
	for i, v := range src {
		if v &= mask; d.pix[i] != v {
			d.pix[i] = v
			changed++
		}
	}
	return changed, nil
}

// Show toggles the backlight, if any.
func (d *Dummy) Show(show bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.setBacklight(show)
}

// Close the dummy device.
func (d *Dummy) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.markClosed() {
		return nil
	}
	d.pix = nil
	return d.setBacklight(false)
}

// Interface checks.
var _ Device = (*Dummy)(nil)
