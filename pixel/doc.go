// Package pixel implements the pixel formats used by framebuffer devices and the
// application-owned surface that is synchronized to them.
//
// Device formats are packed integers of 8, 16 or 24 bits per pixel with the red,
// green and blue channels in either RGB or BGR order. The surface always holds
// 32-bit ARGB values and is compatible with Go's native [color.Color] and
// [image/draw.Image] interfaces.
package pixel
