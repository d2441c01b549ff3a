package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particles/particlert/rt/core"
)

// WgpuFactory creates particle resources on a WebGPU device. Writes go
// through the device queue, which stages them, so discard writes never wait
// on the previous frame.
type WgpuFactory struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	logger core.Logger
}

var _ ResourceFactory = (*WgpuFactory)(nil)

// bufferWriter is the part of *wgpu.Queue that buffer uploads go through.
type bufferWriter interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

func NewWgpuFactory(device *wgpu.Device, logger core.Logger) *WgpuFactory {
	return &WgpuFactory{
		Device: device,
		Queue:  device.GetQueue(),
		logger: core.ForComponent(logger, "wgpu"),
	}
}

func wgpuTextureFormat(f core.PixelFormat) wgpu.TextureFormat {
	switch f {
	case core.PixelFormatRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	case core.PixelFormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func (f *WgpuFactory) CreateTexture(desc TextureDesc) (Texture, error) {
	// Both usages upload through the queue; WebGPU has no separate dynamic
	// texture kind.
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	tex, err := f.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		Format:        wgpuTextureFormat(desc.Format),
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create view %q: %w", desc.Label, err)
	}
	return &WgpuTexture{Texture: tex, View: view, desc: desc, queue: f.Queue}, nil
}

func (f *WgpuFactory) CreateIndexBuffer(desc BufferDesc) (IndexBuffer, error) {
	// Each 16x2U element is one u32 on the shader side.
	buf, err := f.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(desc.ElementCount) * 4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	return &WgpuIndexBuffer{
		Buffer: buf,
		label:  desc.Label,
		shadow: make([]uint32, desc.ElementCount),
		queue:  f.Queue,
		logger: f.logger,
	}, nil
}

func (f *WgpuFactory) CreateVertexBuffer(desc VertexBufferDesc) (VertexBuffer, error) {
	buf, err := f.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(desc.NumVerts) * uint64(desc.VertexSize),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer %q: %w", desc.Label, err)
	}
	return &WgpuVertexBuffer{Buffer: buf, size: uint64(desc.NumVerts) * uint64(desc.VertexSize), queue: f.Queue}, nil
}

func (f *WgpuFactory) CreateVertexLayout(elements []VertexElement) (VertexLayout, error) {
	return &WgpuVertexLayout{elements: append([]VertexElement(nil), elements...)}, nil
}

type WgpuTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView

	desc  TextureDesc
	queue *wgpu.Queue
}

func (t *WgpuTexture) WriteData(data core.PixelData, discard bool) error {
	if data.Width != t.desc.Width || data.Height != t.desc.Height || data.Format != t.desc.Format {
		return fmt.Errorf("texture %q is %dx%d %s, got %dx%d %s", t.desc.Label,
			t.desc.Width, t.desc.Height, t.desc.Format, data.Width, data.Height, data.Format)
	}
	extent := wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1}
	return t.queue.WriteTexture(t.Texture.AsImageCopy(), data.Data, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  data.Pitch(),
		RowsPerImage: data.Height,
	}, &extent)
}

func (t *WgpuTexture) Release() {
	t.View.Release()
	t.Texture.Release()
}

// WgpuIndexBuffer keeps a CPU shadow of the buffer; Unlock uploads it.
// Unlock has no error return, so a failed upload is logged and kept for Err.
type WgpuIndexBuffer struct {
	Buffer *wgpu.Buffer

	label  string
	shadow []uint32
	queue  bufferWriter
	logger core.Logger
	err    error
}

func (b *WgpuIndexBuffer) Lock() []uint32 { return b.shadow }

func (b *WgpuIndexBuffer) Unlock() {
	if len(b.shadow) == 0 {
		return
	}
	b.err = b.queue.WriteBuffer(b.Buffer, 0, wgpu.ToBytes(b.shadow))
	if b.err != nil {
		core.OrNop(b.logger).Errorf("upload index buffer %q: %v", b.label, b.err)
	}
}

// Err reports the result of the last upload.
func (b *WgpuIndexBuffer) Err() error { return b.err }

func (b *WgpuIndexBuffer) Release() { b.Buffer.Release() }

type WgpuVertexBuffer struct {
	Buffer *wgpu.Buffer

	size  uint64
	queue bufferWriter
}

func (b *WgpuVertexBuffer) WriteData(data []byte, discard bool) error {
	if uint64(len(data)) > b.size {
		return fmt.Errorf("vertex data of %d bytes exceeds buffer size %d", len(data), b.size)
	}
	if err := b.queue.WriteBuffer(b.Buffer, 0, data); err != nil {
		return fmt.Errorf("upload vertex data: %w", err)
	}
	return nil
}

func (b *WgpuVertexBuffer) Release() { b.Buffer.Release() }

type WgpuVertexLayout struct {
	elements []VertexElement
}

func (l *WgpuVertexLayout) Elements() []VertexElement { return l.elements }
func (l *WgpuVertexLayout) VertexSize() uint32        { return layoutVertexSize(l.elements) }
func (l *WgpuVertexLayout) Release()                  {}

// BufferLayout describes stream 0 for a render pipeline. Shader locations
// follow element order.
func (l *WgpuVertexLayout) BufferLayout() wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, len(l.elements))
	var offset uint64
	for i, e := range l.elements {
		attrs[i] = wgpu.VertexAttribute{
			Format:         wgpuVertexFormat(e.Type),
			Offset:         offset,
			ShaderLocation: uint32(i),
		}
		offset += uint64(e.Type.Size())
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func wgpuVertexFormat(t VertexElementType) wgpu.VertexFormat {
	switch t {
	case VertexFloat2:
		return wgpu.VertexFormatFloat32x2
	case VertexFloat3:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

func WgpuTopology(op DrawOperation) wgpu.PrimitiveTopology {
	if op == DrawTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// WgpuRenderAPI submits draws into an open render pass. WebGPU bakes the
// vertex layout and topology into the pipeline, so those are only recorded
// here; the caller binds a pipeline built from the same values.
type WgpuRenderAPI struct {
	Pass *wgpu.RenderPassEncoder

	layout VertexLayout
	op     DrawOperation
}

var _ RenderAPI = (*WgpuRenderAPI)(nil)

func NewWgpuRenderAPI(pass *wgpu.RenderPassEncoder) *WgpuRenderAPI {
	return &WgpuRenderAPI{Pass: pass}
}

func (r *WgpuRenderAPI) SetVertexLayout(layout VertexLayout) { r.layout = layout }
func (r *WgpuRenderAPI) SetDrawOperation(op DrawOperation)   { r.op = op }

// Layout and Topology report the last recorded state so the caller can pick
// a matching pipeline.
func (r *WgpuRenderAPI) Layout() VertexLayout              { return r.layout }
func (r *WgpuRenderAPI) Topology() wgpu.PrimitiveTopology { return WgpuTopology(r.op) }

func (r *WgpuRenderAPI) SetVertexBuffers(slot uint32, buffers ...VertexBuffer) {
	for i, b := range buffers {
		wb, ok := b.(*WgpuVertexBuffer)
		if !ok {
			continue
		}
		r.Pass.SetVertexBuffer(slot+uint32(i), wb.Buffer, 0, wb.size)
	}
}

func (r *WgpuRenderAPI) Draw(startVertex, vertexCount, instanceCount uint32) {
	r.Pass.Draw(vertexCount, instanceCount, startVertex, 0)
}
