package main

import (
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const overlaySize = 12 // points

// overlay renders a line of text in the top left corner of an image.
type overlay struct {
	dst  draw.Image
	ctx  *freetype.Context
	face font.Face
	box  image.Rectangle
}

func newOverlay(dst draw.Image) (*overlay, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(overlaySize)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(color.White))
	ctx.SetHinting(font.HintingFull)

	face := truetype.NewFace(f, &truetype.Options{
		Size:    overlaySize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	m := face.Metrics()
	return &overlay{
		dst:  dst,
		ctx:  ctx,
		face: face,
		box:  image.Rect(0, 0, 0, (m.Ascent + m.Descent).Ceil()+4).Add(dst.Bounds().Min),
	}, nil
}

// draw text on a black box sized to fit it.
func (o *overlay) draw(text string) error {
	width := font.MeasureString(o.face, text).Ceil()
	box := o.box
	box.Max.X = box.Min.X + width + 4
	draw.Draw(o.dst, box, image.Black, image.Point{}, draw.Src)

	ascent := o.face.Metrics().Ascent
	pt := fixed.Point26_6{
		X: fixed.I(box.Min.X + 2),
		Y: fixed.I(box.Min.Y+2) + ascent,
	}
	_, err := o.ctx.DrawString(text, pt)
	return err
}
