package gpu

import (
	"github.com/gekko3d/particles/particlert/rt/core"
)

type TextureUsage uint8

const (
	TextureUsageStatic TextureUsage = iota
	TextureUsageDynamic
)

type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format core.PixelFormat
	Usage  TextureUsage
}

type BufferFormat uint8

const (
	// BufferFormat16x2U packs two 16-bit unsigned integers per element.
	BufferFormat16x2U BufferFormat = iota
)

type BufferDesc struct {
	Label        string
	ElementCount uint32
	Format       BufferFormat
}

type VertexElementType uint8

const (
	VertexFloat2 VertexElementType = iota
	VertexFloat3
	VertexFloat4
)

func (t VertexElementType) Size() uint32 {
	switch t {
	case VertexFloat2:
		return 8
	case VertexFloat3:
		return 12
	default:
		return 16
	}
}

type VertexSemantic uint8

const (
	SemanticPosition VertexSemantic = iota
	SemanticTexCoord
)

type VertexElement struct {
	Type     VertexElementType
	Semantic VertexSemantic
}

type VertexBufferDesc struct {
	Label      string
	NumVerts   uint32
	VertexSize uint32
}

type DrawOperation uint8

const (
	DrawTriangleList DrawOperation = iota
	DrawTriangleStrip
)

// Texture is a GPU texture whose contents are replaced wholesale.
type Texture interface {
	// WriteData uploads data over the full texture. With discard set the
	// previous contents may be dropped instead of synchronised with
	// in-flight reads.
	WriteData(data core.PixelData, discard bool) error
	Release()
}

// IndexBuffer is a structured GPU buffer written through a CPU mapping.
type IndexBuffer interface {
	// Lock maps the buffer for write-discard. The returned slice has one
	// entry per element and is only valid until Unlock.
	Lock() []uint32
	Unlock()
	Release()
}

type VertexBuffer interface {
	WriteData(data []byte, discard bool) error
	Release()
}

type VertexLayout interface {
	Elements() []VertexElement
	// VertexSize is the stride in bytes of one vertex of stream 0.
	VertexSize() uint32
	Release()
}

// ResourceFactory creates GPU resources. Creation failures are returned
// unchanged to the caller.
type ResourceFactory interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateIndexBuffer(desc BufferDesc) (IndexBuffer, error)
	CreateVertexBuffer(desc VertexBufferDesc) (VertexBuffer, error)
	CreateVertexLayout(elements []VertexElement) (VertexLayout, error)
}

// RenderAPI submits draws on the render thread.
type RenderAPI interface {
	SetVertexLayout(layout VertexLayout)
	SetVertexBuffers(slot uint32, buffers ...VertexBuffer)
	SetDrawOperation(op DrawOperation)
	Draw(startVertex, vertexCount, instanceCount uint32)
}

func layoutVertexSize(elements []VertexElement) uint32 {
	var size uint32
	for _, e := range elements {
		size += e.Type.Size()
	}
	return size
}
