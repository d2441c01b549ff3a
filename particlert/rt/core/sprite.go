package core

import (
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847

// NewDiscSprite rasterises a soft white disc: rings are composited over each
// other so coverage rises toward the centre.
func NewDiscSprite(size int, rings int) *image.Alpha {
	if size <= 0 {
		size = 1
	}
	if rings <= 0 {
		rings = 1
	}
	dst := image.NewAlpha(image.Rect(0, 0, size, size))
	r := vector.NewRasterizer(size, size)

	c := float32(size) / 2
	step := uint8(255 / rings)
	for i := 0; i < rings; i++ {
		radius := c * float32(rings-i) / float32(rings)
		r.Reset(size, size)
		addCircle(r, c, c, radius)
		r.Draw(dst, dst.Bounds(), image.NewUniform(color.Alpha{A: step}), image.Point{})
	}
	return dst
}

func addCircle(r *vector.Rasterizer, cx, cy, radius float32) {
	k := radius * kappa
	r.MoveTo(cx+radius, cy)
	r.CubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
	r.CubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
	r.CubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	r.CubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	r.ClosePath()
}

// SpritePixelData expands an alpha mask into white RGBA8 texels.
func SpritePixelData(mask *image.Alpha) PixelData {
	b := mask.Bounds()
	p := NewPixelData(PixelFormatRGBA8, uint32(b.Dx()), uint32(b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			a := mask.AlphaAt(b.Min.X+x, b.Min.Y+y).A
			p.SetRGBA8(uint32(x), uint32(y), [4]uint8{255, 255, 255, a})
		}
	}
	return p
}
