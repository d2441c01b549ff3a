package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// PixelFormat is the texel layout of a PixelData image. The set matches the
// formats the particle textures are created with.
type PixelFormat uint8

const (
	PixelFormatRGBA32F PixelFormat = iota
	PixelFormatRGBA8
	PixelFormatRGBA16F
)

func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatRGBA32F:
		return 16
	case PixelFormatRGBA16F:
		return 8
	default:
		return 4
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA32F:
		return "RGBA32F"
	case PixelFormatRGBA8:
		return "RGBA8"
	case PixelFormatRGBA16F:
		return "RGBA16F"
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// PixelData is a row-major CPU image. RowPitch is the byte distance between
// the starts of two rows and may exceed Width*BytesPerPixel; zero means
// tightly packed.
type PixelData struct {
	Format   PixelFormat
	Width    uint32
	Height   uint32
	RowPitch uint32
	Data     []byte
}

// NewPixelData allocates a tightly packed, zeroed image.
func NewPixelData(format PixelFormat, width, height uint32) PixelData {
	pitch := width * format.BytesPerPixel()
	return PixelData{
		Format:   format,
		Width:    width,
		Height:   height,
		RowPitch: pitch,
		Data:     make([]byte, int(pitch)*int(height)),
	}
}

// Pitch is the row pitch actually used for addressing. A RowPitch shorter
// than one row of texels, including the zero value, means tightly packed.
func (p PixelData) Pitch() uint32 {
	return max(p.RowPitch, p.Width*p.Format.BytesPerPixel())
}

// RowSkip is the number of padding bytes after the last texel of each row.
func (p PixelData) RowSkip() uint32 {
	return p.Pitch() - p.Width*p.Format.BytesPerPixel()
}

func (p PixelData) offset(x, y uint32) int {
	return int(y*p.Pitch() + x*p.Format.BytesPerPixel())
}

func (p PixelData) SetRGBA32F(x, y uint32, v [4]float32) {
	o := p.offset(x, y)
	for i, c := range v {
		binary.LittleEndian.PutUint32(p.Data[o+i*4:], math.Float32bits(c))
	}
}

func (p PixelData) RGBA32F(x, y uint32) [4]float32 {
	o := p.offset(x, y)
	var v [4]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.Data[o+i*4:]))
	}
	return v
}

func (p PixelData) SetRGBA16F(x, y uint32, v [4]float32) {
	o := p.offset(x, y)
	for i, c := range v {
		binary.LittleEndian.PutUint16(p.Data[o+i*2:], float16.Fromfloat32(c).Bits())
	}
}

func (p PixelData) RGBA16F(x, y uint32) [4]float32 {
	o := p.offset(x, y)
	var v [4]float32
	for i := range v {
		v[i] = float16.Frombits(binary.LittleEndian.Uint16(p.Data[o+i*2:])).Float32()
	}
	return v
}

func (p PixelData) SetRGBA8(x, y uint32, c [4]uint8) {
	o := p.offset(x, y)
	copy(p.Data[o:o+4], c[:])
}

func (p PixelData) RGBA8(x, y uint32) [4]uint8 {
	o := p.offset(x, y)
	return [4]uint8{p.Data[o], p.Data[o+1], p.Data[o+2], p.Data[o+3]}
}

// UnormColor converts a [0,1] float color to 8-bit channels, clamping out of
// range values.
func UnormColor(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		if v <= 0 {
			continue
		}
		if v >= 1 {
			out[i] = 255
			continue
		}
		out[i] = uint8(v*255 + 0.5)
	}
	return out
}
