package main

import (
	"fmt"
	"image"
	"os"

	// Supported image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

// loadImage decodes the image at name and scales it to fit in half of bounds,
// keeping its aspect ratio.
func loadImage(name string, bounds image.Rectangle) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("loaded %s image %s of %s\n", format, name, src.Bounds().Size())
	return scaleToFit(src, bounds.Dx()/2, bounds.Dy()/2), nil
}

// scaleToFit scales src to the largest size that fits in w×h.
func scaleToFit(src image.Image, w, h int) image.Image {
	size := src.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 || w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}

	dw, dh := w, size.Y*w/size.X
	if dh > h {
		dw, dh = size.X*h/size.Y, h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// drawCentered draws src over the center of dst.
func drawCentered(dst draw.Image, src image.Image) {
	var (
		size = dst.Bounds()
		dim  = src.Bounds().Size()
		pos  image.Rectangle
	)
	pos.Min = image.Pt(size.Min.X+size.Dx()/2-dim.X/2, size.Min.Y+size.Dy()/2-dim.Y/2)
	pos.Max = pos.Min.Add(dim)
	draw.Draw(dst, pos, src, src.Bounds().Min, draw.Over)
}
