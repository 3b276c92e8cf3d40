package pixel

import (
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
)

// Surface is the pixel array an application draws into before it is
// synchronized to a device.
//
// Pixels are ARGB values addressed by index y*width+x. Individual pixel loads
// and stores are atomic, so an application drawing while a sync is in progress
// only races at pixel granularity: the last write before the next sync wins.
// Everything else, such as drawing from several goroutines, has to be
// serialized by the caller.
type Surface struct {
	// Rect is the surface bounding box, always anchored at (0, 0).
	Rect image.Rectangle

	// Pix are the ARGB pixels.
	Pix []uint32

	// Stride is the Pix stride (in pixels) between vertically adjacent pixels.
	Stride int
}

// NewSurface allocates a black surface of w×h pixels.
func NewSurface(w, h int) *Surface {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	s := &Surface{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]uint32, w*h),
		Stride: w,
	}
	s.Clear()
	return s
}

// Width in pixels.
func (s *Surface) Width() int { return s.Rect.Dx() }

// Height in pixels.
func (s *Surface) Height() int { return s.Rect.Dy() }

// Len is the number of pixels.
func (s *Surface) Len() int { return len(s.Pix) }

// Get returns the ARGB value at index i.
func (s *Surface) Get(i int) uint32 {
	return atomic.LoadUint32(&s.Pix[i])
}

// Put stores the ARGB value v at index i.
func (s *Surface) Put(i int, v uint32) {
	atomic.StoreUint32(&s.Pix[i], v)
}

// PixOffset is the index of the pixel at (x, y).
func (s *Surface) PixOffset(x, y int) int {
	return y*s.Stride + x
}

func (s *Surface) Bounds() image.Rectangle {
	return s.Rect
}

func (s *Surface) ColorModel() color.Model {
	return ARGBModel
}

func (s *Surface) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(s.Rect) {
		return color.Transparent
	}
	return ARGB(s.Get(s.PixOffset(x, y)))
}

func (s *Surface) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(s.Rect) {
		return
	}
	s.Put(s.PixOffset(x, y), uint32(argbModel(c).(ARGB)))
}

// SetARGB is Set without the color conversion.
func (s *Surface) SetARGB(x, y int, c ARGB) {
	if !(image.Point{X: x, Y: y}).In(s.Rect) {
		return
	}
	s.Put(s.PixOffset(x, y), uint32(c))
}

// Fill the surface with a single color.
func (s *Surface) Fill(c color.Color) {
	v := uint32(argbModel(c).(ARGB))
	for i := range s.Pix {
		s.Put(i, v)
	}
}

// Clear the surface to opaque black.
func (s *Surface) Clear() {
	s.Fill(Black)
}

// CopyTo copies the pixels into dst, which must hold at least Len values, and
// returns the number of pixels copied.
func (s *Surface) CopyTo(dst []uint32) int {
	n := len(s.Pix)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = s.Get(i)
	}
	return n
}

// Interface checks.
var _ draw.Image = (*Surface)(nil)
