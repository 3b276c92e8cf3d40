package main

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// drawBorder outlines rect with a one pixel line and radius pixels rounded
// corners.
func drawBorder(dst draw.Image, rect image.Rectangle, radius int, c color.Color) {
	r := rect.Canon()
	if limit := min(r.Dx(), r.Dy()) / 2; radius > limit {
		radius = limit
	}
	if r.Empty() {
		return
	}

	for x := r.Min.X + radius; x < r.Max.X-radius; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y + radius; y < r.Max.Y-radius; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X-1, y, c)
	}
	if radius == 0 {
		return
	}

	// Midpoint circle, one octant mirrored into each corner.
	var (
		left   = r.Min.X + radius
		right  = r.Max.X - radius - 1
		top    = r.Min.Y + radius
		bottom = r.Max.Y - radius - 1
		f      = 1 - radius
		ddx    = 1
		ddy    = -2 * radius
		x      = 0
		y      = radius
	)
	for x <= y {
		for _, p := range [...]image.Point{
			{right + x, bottom + y}, {right + y, bottom + x},
			{right + x, top - y}, {right + y, top - x},
			{left - x, bottom + y}, {left - y, bottom + x},
			{left - x, top - y}, {left - y, top - x},
		} {
			dst.Set(p.X, p.Y, c)
		}

		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
	}
}
