package pixel

import "image/color"

// ARGBModel converts any color to ARGB.
var ARGBModel color.Model = color.ModelFunc(argbModel)

// Common colors.
const (
	Black ARGB = 0xff000000
	White ARGB = 0xffffffff
)

// ARGB is a non-alpha-premultiplied 32-bit color packed as 0xAARRGGBB.
type ARGB uint32

// NewARGB packs an opaque color.
func NewARGB(r, g, b uint8) ARGB {
	return ARGB(0xff000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A is the alpha channel.
func (c ARGB) A() uint8 { return uint8(c >> 24) }

// R is the red channel.
func (c ARGB) R() uint8 { return uint8(c >> 16) }

// G is the green channel.
func (c ARGB) G() uint8 { return uint8(c >> 8) }

// B is the blue channel.
func (c ARGB) B() uint8 { return uint8(c) }

func (c ARGB) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}.RGBA()
}

func argbModel(c color.Color) color.Color {
	switch c := c.(type) {
	case ARGB:
		return c
	case color.NRGBA:
		return ARGB(uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
	default:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		return ARGB(uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B))
	}
}
