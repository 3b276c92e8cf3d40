package pixel

import (
	"errors"
	"fmt"
	"image/color"
	"math/bits"
)

// Errors
var (
	ErrUnsupportedDepth = errors.New("pixel: unsupported color depth")
	ErrUnsupportedOrder = errors.New("pixel: unsupported channel order")
)

// Depth is the number of bits used to encode one pixel.
type Depth int

// Supported depths.
const (
	Depth8  Depth = 8
	Depth16 Depth = 16
	Depth24 Depth = 24
)

// Bytes is the number of bytes a pixel of this depth occupies in device memory.
func (d Depth) Bytes() int {
	return (int(d) + 7) / 8
}

// Valid reports if the depth is supported.
func (d Depth) Valid() bool {
	return d == Depth8 || d == Depth16 || d == Depth24
}

func (d Depth) String() string {
	return fmt.Sprintf("%d-bit", int(d))
}

// Order is the channel ordering within a packed pixel, from most to least
// significant bits.
type Order uint8

// Supported orders.
const (
	RGB Order = iota
	BGR
)

func (o Order) String() string {
	switch o {
	case RGB:
		return "RGB"
	case BGR:
		return "BGR"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// Channel is a color component.
type Channel uint8

// Channels.
const (
	Red Channel = iota
	Green
	Blue
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// masks is indexed by order and holds the red, green, blue masks per depth.
var masks = [2]struct {
	mask8, mask16, mask24 [3]uint32
}{
	RGB: {
		mask8:  [3]uint32{0xe0, 0x1c, 0x03},             // 3-3-2
		mask16: [3]uint32{0xf800, 0x07e0, 0x001f},       // 5-6-5
		mask24: [3]uint32{0xff0000, 0x00ff00, 0x0000ff}, // 8-8-8
	},
	BGR: {
		mask8:  [3]uint32{0x03, 0x1c, 0xe0},             // 2-3-3
		mask16: [3]uint32{0x001f, 0x07e0, 0xf800},       // 5-6-5
		mask24: [3]uint32{0x0000ff, 0x00ff00, 0xff0000}, // 8-8-8
	},
}

// Mask returns the bitmask of a channel at a depth and order.
func Mask(depth Depth, order Order, channel Channel) (uint32, error) {
	c, err := NewCodec(depth, order)
	if err != nil {
		return 0, err
	}
	if channel > Blue {
		return 0, fmt.Errorf("pixel: invalid channel %d", channel)
	}
	return c.field[channel].mask, nil
}

// Encode packs an 8-bit per channel color into the native device value.
func Encode(depth Depth, order Order, r, g, b uint8) (uint32, error) {
	c, err := NewCodec(depth, order)
	if err != nil {
		return 0, err
	}
	return c.Encode(r, g, b), nil
}

// Decode unpacks a native device value into 8-bit per channel color.
func Decode(depth Depth, order Order, v uint32) (r, g, b uint8, err error) {
	var c *Codec
	if c, err = NewCodec(depth, order); err != nil {
		return
	}
	r, g, b = c.Decode(v)
	return
}

// Quantize returns the color as it looks after being stored at depth and order.
func Quantize(depth Depth, order Order, r, g, b uint8) (qr, qg, qb uint8, err error) {
	var c *Codec
	if c, err = NewCodec(depth, order); err != nil {
		return
	}
	qr, qg, qb = c.Quantize(r, g, b)
	return
}

type field struct {
	mask  uint32
	shift int
	width int
}

func (f field) encode(v uint8) uint32 {
	return uint32(v>>(8-f.width)) << f.shift
}

func (f field) decode(v uint32) uint8 {
	return expand(uint8((v&f.mask)>>f.shift), f.width)
}

func (f field) quantize(v uint8) uint8 {
	return expand(v>>(8-f.width), f.width)
}

// expand scales an n-bit value up to 8 bits by repeating its high bits in the
// low bits.
func expand(v uint8, n int) uint8 {
	v <<= 8 - n
	for s := n; s < 8; s += n {
		v |= v >> s
	}
	return v
}

// Codec converts between 8-bit per channel colors and one native pixel format.
//
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	depth Depth
	order Order
	field [3]field
}

// NewCodec prepares a codec for depth and order.
func NewCodec(depth Depth, order Order) (*Codec, error) {
	if order > BGR {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedOrder, order)
	}

	var table [3]uint32
	switch depth {
	case Depth8:
		table = masks[order].mask8
	case Depth16:
		table = masks[order].mask16
	case Depth24:
		table = masks[order].mask24
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, int(depth))
	}

	c := &Codec{depth: depth, order: order}
	for i, mask := range table {
		c.field[i] = field{
			mask:  mask,
			shift: bits.TrailingZeros32(mask),
			width: bits.OnesCount32(mask),
		}
	}
	return c, nil
}

// Depth of the native format.
func (c *Codec) Depth() Depth { return c.depth }

// Order of the native format.
func (c *Codec) Order() Order { return c.order }

// Mask returns the bitmask of channel.
func (c *Codec) Mask(channel Channel) uint32 {
	if channel > Blue {
		return 0
	}
	return c.field[channel].mask
}

// Encode packs r, g, b into a native value.
func (c *Codec) Encode(r, g, b uint8) uint32 {
	return c.field[Red].encode(r) | c.field[Green].encode(g) | c.field[Blue].encode(b)
}

// EncodeARGB packs a 0xAARRGGBB value into a native value; alpha is dropped.
func (c *Codec) EncodeARGB(v uint32) uint32 {
	return c.Encode(uint8(v>>16), uint8(v>>8), uint8(v))
}

// Decode unpacks a native value. Bits outside the channel masks are ignored.
func (c *Codec) Decode(v uint32) (r, g, b uint8) {
	return c.field[Red].decode(v), c.field[Green].decode(v), c.field[Blue].decode(v)
}

// DecodeARGB unpacks a native value into an opaque 0xAARRGGBB value.
func (c *Codec) DecodeARGB(v uint32) uint32 {
	r, g, b := c.Decode(v)
	return 0xff000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Quantize reduces r, g, b to the precision of the native format.
func (c *Codec) Quantize(r, g, b uint8) (uint8, uint8, uint8) {
	return c.field[Red].quantize(r), c.field[Green].quantize(g), c.field[Blue].quantize(b)
}

// Model returns a color model that maps colors to what the device displays.
func (c *Codec) Model() color.Model {
	return color.ModelFunc(func(in color.Color) color.Color {
		v := ARGBModel.Convert(in).(ARGB)
		return ARGB(c.DecodeARGB(c.EncodeARGB(uint32(v))))
	})
}

func (c *Codec) String() string {
	return fmt.Sprintf("%s %s", c.depth, c.order)
}
