package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ParamField is one member of a uniform block, offsets follow WGSL uniform
// layout rules.
type ParamField struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ParamLayout describes a uniform block shared by every particle variation.
// The package-level layouts are built once and never modified.
type ParamLayout struct {
	Name   string
	Size   uint32
	Fields []ParamField
}

func (l *ParamLayout) offset(name string) int {
	for _, f := range l.Fields {
		if f.Name == name {
			return int(f.Offset)
		}
	}
	panic("gpu: unknown field " + name + " in " + l.Name)
}

var ParticlesParamLayout = &ParamLayout{
	Name: "ParticleParams",
	Size: 64,
	Fields: []ParamField{
		{Name: "gSubImageSize", Offset: 0, Size: 16},
		{Name: "gUVOffset", Offset: 16, Size: 8},
		{Name: "gUVScale", Offset: 24, Size: 8},
		{Name: "gAxisUp", Offset: 32, Size: 12},
		{Name: "gTexSize", Offset: 44, Size: 4},
		{Name: "gAxisRight", Offset: 48, Size: 12},
		{Name: "gBufferOffset", Offset: 60, Size: 4},
	},
}

var GpuParticlesParamLayout = &ParamLayout{
	Name: "GpuParticleParams",
	Size: 32,
	Fields: []ParamField{
		{Name: "gColorCurveOffset", Offset: 0, Size: 8},
		{Name: "gColorCurveScale", Offset: 8, Size: 8},
		{Name: "gSizeScaleFrameIdxCurveOffset", Offset: 16, Size: 8},
		{Name: "gSizeScaleFrameIdxCurveScale", Offset: 24, Size: 8},
	},
}

var CameraParamLayout = &ParamLayout{
	Name: "CameraParams",
	Size: 80,
	Fields: []ParamField{
		{Name: "gViewProj", Offset: 0, Size: 64},
		{Name: "gViewOrigin", Offset: 64, Size: 12},
	},
}

// ParticlesParams is the per-system uniform block for billboard particles.
type ParticlesParams struct {
	// SubImageSize holds the sprite sheet grid: xy sub-image count, zw
	// normalised sub-image size.
	SubImageSize mgl32.Vec4
	UVOffset     mgl32.Vec2
	UVScale      mgl32.Vec2
	AxisUp       mgl32.Vec3
	TexSize      uint32
	AxisRight    mgl32.Vec3
	BufferOffset uint32
}

// DefaultParticlesParams uses a single full-texture sub-image and world axes.
func DefaultParticlesParams(texSize uint32) ParticlesParams {
	return ParticlesParams{
		SubImageSize: mgl32.Vec4{1, 1, 1, 1},
		UVScale:      mgl32.Vec2{1, 1},
		AxisUp:       mgl32.Vec3{0, 1, 0},
		AxisRight:    mgl32.Vec3{1, 0, 0},
		TexSize:      texSize,
	}
}

func (p ParticlesParams) Encode() []byte {
	l := ParticlesParamLayout
	buf := make([]byte, l.Size)
	putFloats(buf[l.offset("gSubImageSize"):], p.SubImageSize[:]...)
	putFloats(buf[l.offset("gUVOffset"):], p.UVOffset[:]...)
	putFloats(buf[l.offset("gUVScale"):], p.UVScale[:]...)
	putFloats(buf[l.offset("gAxisUp"):], p.AxisUp[:]...)
	binary.LittleEndian.PutUint32(buf[l.offset("gTexSize"):], p.TexSize)
	putFloats(buf[l.offset("gAxisRight"):], p.AxisRight[:]...)
	binary.LittleEndian.PutUint32(buf[l.offset("gBufferOffset"):], p.BufferOffset)
	return buf
}

// GpuParticlesParams maps curve lookups for GPU-simulated particles.
type GpuParticlesParams struct {
	ColorCurveOffset             mgl32.Vec2
	ColorCurveScale              mgl32.Vec2
	SizeScaleFrameIdxCurveOffset mgl32.Vec2
	SizeScaleFrameIdxCurveScale  mgl32.Vec2
}

func (p GpuParticlesParams) Encode() []byte {
	l := GpuParticlesParamLayout
	buf := make([]byte, l.Size)
	putFloats(buf[l.offset("gColorCurveOffset"):], p.ColorCurveOffset[:]...)
	putFloats(buf[l.offset("gColorCurveScale"):], p.ColorCurveScale[:]...)
	putFloats(buf[l.offset("gSizeScaleFrameIdxCurveOffset"):], p.SizeScaleFrameIdxCurveOffset[:]...)
	putFloats(buf[l.offset("gSizeScaleFrameIdxCurveScale"):], p.SizeScaleFrameIdxCurveScale[:]...)
	return buf
}

type CameraParams struct {
	ViewProj   mgl32.Mat4
	ViewOrigin mgl32.Vec3
}

func (p CameraParams) Encode() []byte {
	l := CameraParamLayout
	buf := make([]byte, l.Size)
	putFloats(buf[l.offset("gViewProj"):], p.ViewProj[:]...)
	putFloats(buf[l.offset("gViewOrigin"):], p.ViewOrigin[:]...)
	return buf
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}
