package framebuffer

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/fbsync/internal/ioctl"
	"github.com/BeatGlow/fbsync/pixel"
)

// Hardware is a memory mapped Linux framebuffer device (fbdev).
//
// Writes only touch device memory for pixels that changed; the last written
// values are kept in a shadow buffer, which also serves reads.
type Hardware struct {
	device
	f          *os.File
	fd         uintptr
	info       linuxFrameBufferInfo
	screenInfo linuxVarScreenInfo
	mem        []byte
	base       int // offset of the visible page
	stride     int
	bpp        int
	shadow     []uint32
}

func openHardware(name string, o *options) (Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, openError(name, ErrOpenFailed, err)
	}

	fb := &Hardware{
		f:  f,
		fd: f.Fd(),
	}
	if err = ioctl.Do(fb.fd, ioctl.FBIOGetFScreenInfo, unsafe.Pointer(&fb.info)); err != nil {
		_ = f.Close()
		return nil, openError(name, ErrFixedInfoFailed, err)
	}

	// Request variable screen info.
	if err = ioctl.Do(fb.fd, ioctl.FBIOGetVScreenInfo, unsafe.Pointer(&fb.screenInfo)); err != nil {
		_ = f.Close()
		return nil, openError(name, ErrVariableInfoFailed, err)
	}

	depth := pixel.Depth(fb.screenInfo.BitsPerPixel)
	if !depth.Valid() {
		_ = f.Close()
		return nil, openError(name, ErrUnsupportedBitDepth, fmt.Errorf("%d bits per pixel", fb.screenInfo.BitsPerPixel))
	}

	var (
		width  = int(fb.screenInfo.Xres)
		height = int(fb.screenInfo.Yres)
	)
	fb.bpp = depth.Bytes()
	if fb.stride = int(fb.info.LineLength); fb.stride == 0 {
		fb.stride = width * fb.bpp
	}
	fb.base = int(fb.screenInfo.Yoffset)*fb.stride + int(fb.screenInfo.Xoffset)*fb.bpp
	if need := fb.base + (height-1)*fb.stride + width*fb.bpp; int(fb.info.SmemLen) < need {
		_ = f.Close()
		return nil, openError(name, ErrMapFailed, fmt.Errorf("%d bytes of video memory, need %d", fb.info.SmemLen, need))
	}

	// Map pixel buffer.
	if fb.mem, err = unix.Mmap(int(fb.fd), 0, int(fb.info.SmemLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		_ = f.Close()
		return nil, openError(name, ErrMapFailed, err)
	}

	fb.setup(name, width, height, depth, linuxParseOrder(&fb.screenInfo), o)

	// Seed the shadow with what is currently on screen.
	fb.shadow = make([]uint32, width*height)
	for i := range fb.shadow {
		fb.shadow[i] = fb.get(i)
	}

	return fb, nil
}

// offset of pixel i in device memory, relative to the panned visible page.
func (fb *Hardware) offset(i int) int {
	return fb.base + (i/fb.width)*fb.stride + (i%fb.width)*fb.bpp
}

// get reads pixel i from device memory, least significant byte first.
func (fb *Hardware) get(i int) (v uint32) {
	p := fb.mem[fb.offset(i):]
	for b := fb.bpp - 1; b >= 0; b-- {
		v = v<<8 | uint32(p[b])
	}
	return
}

// put writes pixel i to device memory, least significant byte first.
func (fb *Hardware) put(i int, v uint32) {
	p := fb.mem[fb.offset(i):]
	for b := 0; b < fb.bpp; b++ {
		p[b] = byte(v)
		v >>= 8
	}
}

func (fb *Hardware) ReadPixel(i int) (uint32, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	if fb.closed {
		return 0, ErrClosed
	}
	if !fb.inBounds(i) {
		return 0, ErrBounds
	}
	return fb.shadow[i], nil
}

func (fb *Hardware) WritePixel(i int, v uint32) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return ErrClosed
	}
	if !fb.inBounds(i) {
		return ErrBounds
	}
	if v &= fb.valueMask(); fb.shadow[i] != v {
		fb.shadow[i] = v
		fb.put(i, v)
	}
	return nil
}

func (fb *Hardware) ReadFrame(dst []uint32) error {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	if fb.closed {
		return ErrClosed
	}
	if len(dst) < fb.size() {
		return ErrBounds
	}
	copy(dst, fb.shadow)
	return nil
}

func (fb *Hardware) WriteFrame(src []uint32) (changed int, err error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return 0, ErrClosed
	}
	if !fb.frameSize(len(src)) {
		return 0, ErrBounds
	}
	mask := fb.valueMask()
	for i, v := range src {
		if v &= mask; fb.shadow[i] != v {
			fb.shadow[i] = v
			fb.put(i, v)
			changed++
		}
	}
	return changed, nil
}

// Show toggles the display on or off by blanking it and switching the backlight.
func (fb *Hardware) Show(show bool) error {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	if fb.closed {
		return ErrClosed
	}

	level := ioctl.BlankPowerdown
	if show {
		level = ioctl.BlankUnblank
	}
	// Not every driver implements blanking, fbtft panels often don't.
	if err := ioctl.Call(fb.fd, ioctl.FBIOBlank, uintptr(level)); err != nil && !errors.Is(err, unix.EINVAL) && !errors.Is(err, unix.ENOTTY) {
		return fmt.Errorf("framebuffer: %w", err)
	}
	return fb.setBacklight(show)
}

// Close the framebuffer device.
func (fb *Hardware) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.markClosed() {
		return nil
	}

	var errs []error
	if err := fb.setBacklight(false); err != nil {
		errs = append(errs, err)
	}
	if err := unix.Munmap(fb.mem); err != nil {
		errs = append(errs, fmt.Errorf("framebuffer: munmap: %w", err))
	}
	if err := fb.f.Close(); err != nil {
		errs = append(errs, err)
	}
	fb.mem, fb.shadow = nil, nil
	return errors.Join(errs...)
}

type linuxFrameBufferInfo struct {
	ID         [16]byte  // Identification string eg "TT Builtin"
	SmemStart  uintptr   // Start of frame buffer mem
	SmemLen    uint32    // Length of frame buffer mem
	Type       uint32    // FB_TYPE_
	TypeAux    uint32    // Interleave for interleaved Planes
	Visual     uint32    // FB_VISUAL_
	Xpanstep   uint16    // Zero if no hardware panning
	Ypanstep   uint16    // Zero if no hardware panning
	Ywrapstep  uint16    // Zero if no hardware ywrap
	LineLength uint32    // Length of a line in bytes
	MmioStart  uintptr   // Start of Memory Mapped I/O (physical address)
	MmioLen    uint32    // Length of Memory Mapped I/O
	Accel      uint32    // Type of acceleration available
	Caps       uint16    // FB_CAP_
	Reserved   [2]uint16 // Reserved for future compatibility
}

// linuxBitField for the color
type linuxBitField struct {
	Offset   uint32 // Beginning of bitfield
	Length   uint32 // Length of bitfield
	MsbRight uint32 // != 0 : Most significant bit is right
}

// linuxVarScreenInfo contains device independent changeable information about a frame buffer device and a specific video mode.
type linuxVarScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha linuxBitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

// linuxParseOrder derives the channel order from the color bitfields. Red in
// the high bits is RGB, red in the low bits is BGR; palette modes report no
// bitfields and default to RGB.
func linuxParseOrder(info *linuxVarScreenInfo) pixel.Order {
	if info.Red.Length == 0 || info.Blue.Length == 0 {
		return pixel.RGB
	}
	if info.Red.Offset < info.Blue.Offset {
		return pixel.BGR
	}
	return pixel.RGB
}

// Interface checks.
var _ Device = (*Hardware)(nil)
