// Package framebuffer provides access to the operating system's native framebuffer
//
// This requires framebuffer device support in the operating system. A device is
// opened with the [Open] call, which validates and maps it into memory. The
// special path "dummy" (or "dummy_<width>x<height>[x<depth>]") selects an
// in-memory substitute with the same contract, so code driving a display can run
// without the hardware.
//
// Device values are native packed pixels, see package pixel for the codec that
// produces them.
package framebuffer

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/fbsync/pixel"
)

// Open errors, one for each stage of validating a device.
var (
	ErrOpenFailed          = errors.New("framebuffer: unable to open device")
	ErrFixedInfoFailed     = errors.New("framebuffer: error reading fixed screen info")
	ErrVariableInfoFailed  = errors.New("framebuffer: error reading variable screen info")
	ErrUnsupportedBitDepth = errors.New("framebuffer: unsupported color depth, 8, 16 and 24 are supported")
	ErrMapFailed           = errors.New("framebuffer: unable to mmap device")
	ErrNotSupported        = errors.New("framebuffer: not supported")
)

// Usage errors.
var (
	ErrClosed = errors.New("framebuffer: device is closed")
	ErrBounds = errors.New("framebuffer: out of device bounds")
)

// OpenError describes why a device could not be opened.
type OpenError struct {
	// Path of the device.
	Path string

	// Kind is one of the open errors, such as ErrMapFailed.
	Kind error

	// Err is the underlying cause, may be nil.
	Err error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap allows matching both the kind and the cause with [errors.Is].
func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func openError(path string, kind, err error) error {
	return &OpenError{Path: path, Kind: kind, Err: err}
}

// Device is an open framebuffer.
//
// Pixels are addressed by index y*Width()+x and hold native values as produced
// by a [pixel.Codec] for the device's depth and order. The geometry is fixed for
// the lifetime of the device. After Close, all pixel operations fail with
// ErrClosed.
type Device interface {
	// Path the device was opened with.
	Path() string

	// Width in pixels.
	Width() int

	// Height in pixels.
	Height() int

	// BitDepth is the number of bits per pixel.
	BitDepth() pixel.Depth

	// Order of the color channels.
	Order() pixel.Order

	// ReadPixel returns the native value at index i.
	ReadPixel(i int) (uint32, error)

	// WritePixel stores the native value v at index i.
	WritePixel(i int, v uint32) error

	// ReadFrame copies all native values into dst. No write is observed
	// halfway.
	ReadFrame(dst []uint32) error

	// WriteFrame stores all native values from src as one unit and returns the
	// number of pixels that changed.
	WriteFrame(src []uint32) (changed int, err error)

	// Show toggles the display on or off.
	Show(bool) error

	// Done is closed when the device is closed.
	Done() <-chan struct{}

	// Close the device. Calling Close more than once is a no-op.
	Close() error
}

// Option configures a device in [Open].
type Option func(*options)

type options struct {
	order     *pixel.Order
	depth     pixel.Depth
	backlight gpio.PinOut
}

// WithOrder overrides the detected channel order.
func WithOrder(order pixel.Order) Option {
	return func(o *options) {
		o.order = &order
	}
}

// WithDepth sets the bit depth of a dummy device. It has no effect on hardware.
func WithDepth(depth pixel.Depth) Option {
	return func(o *options) {
		o.depth = depth
	}
}

// WithBacklight drives a backlight pin: high while the device is open and shown,
// low after it is closed.
func WithBacklight(pin gpio.PinOut) Option {
	return func(o *options) {
		o.backlight = pin
	}
}

// Open a framebuffer device by name, typically /dev/fb[0..x], or a dummy device.
func Open(name string, opts ...Option) (Device, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		d   Device
		err error
	)
	if IsDummy(name) {
		d, err = openDummy(name, &o)
	} else {
		d, err = openHardware(name, &o)
	}
	if err != nil {
		return nil, err
	}

	if err = d.Show(true); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}
