package gpu

import (
	"errors"

	"github.com/gekko3d/particles/particlert/rt/core"
)

var errOutOfMemory = errors.New("out of device memory")

// mockFactory records every resource it creates and every release.
type mockFactory struct {
	textures      []*mockTexture
	indexBuffers  []*mockIndexBuffer
	vertexBuffers []*mockVertexBuffer
	layouts       []*mockLayout

	created        int
	released       int
	doubleReleased int

	// failTexture makes the n-th texture creation (1-based) fail. Zero
	// disables it.
	failTexture int
}

func (f *mockFactory) live() int { return f.created - f.released }

func (f *mockFactory) release(done *bool) {
	if *done {
		f.doubleReleased++
		return
	}
	*done = true
	f.released++
}

func (f *mockFactory) CreateTexture(desc TextureDesc) (Texture, error) {
	if f.failTexture > 0 && len(f.textures)+1 == f.failTexture {
		f.failTexture = 0
		return nil, errOutOfMemory
	}
	t := &mockTexture{desc: desc, f: f}
	f.textures = append(f.textures, t)
	f.created++
	return t, nil
}

func (f *mockFactory) CreateIndexBuffer(desc BufferDesc) (IndexBuffer, error) {
	b := &mockIndexBuffer{desc: desc, data: make([]uint32, desc.ElementCount), f: f}
	f.indexBuffers = append(f.indexBuffers, b)
	f.created++
	return b, nil
}

func (f *mockFactory) CreateVertexBuffer(desc VertexBufferDesc) (VertexBuffer, error) {
	b := &mockVertexBuffer{desc: desc, f: f}
	f.vertexBuffers = append(f.vertexBuffers, b)
	f.created++
	return b, nil
}

func (f *mockFactory) CreateVertexLayout(elements []VertexElement) (VertexLayout, error) {
	l := &mockLayout{elements: elements, f: f}
	f.layouts = append(f.layouts, l)
	f.created++
	return l, nil
}

type mockTexture struct {
	desc     TextureDesc
	f        *mockFactory
	writes   int
	discard  bool
	last     core.PixelData
	released bool
}

func (t *mockTexture) WriteData(data core.PixelData, discard bool) error {
	t.writes++
	t.discard = discard
	t.last = data
	return nil
}

func (t *mockTexture) Release() { t.f.release(&t.released) }

type mockIndexBuffer struct {
	desc     BufferDesc
	data     []uint32
	f        *mockFactory
	locks    int
	unlocks  int
	released bool
}

func (b *mockIndexBuffer) Lock() []uint32 {
	b.locks++
	return b.data
}

func (b *mockIndexBuffer) Unlock()  { b.unlocks++ }
func (b *mockIndexBuffer) Release() { b.f.release(&b.released) }

type mockVertexBuffer struct {
	desc     VertexBufferDesc
	f        *mockFactory
	data     []byte
	discard  bool
	released bool
}

func (b *mockVertexBuffer) WriteData(data []byte, discard bool) error {
	b.data = append([]byte(nil), data...)
	b.discard = discard
	return nil
}

func (b *mockVertexBuffer) Release() { b.f.release(&b.released) }

type mockLayout struct {
	elements []VertexElement
	f        *mockFactory
	released bool
}

func (l *mockLayout) Elements() []VertexElement { return l.elements }
func (l *mockLayout) VertexSize() uint32        { return layoutVertexSize(l.elements) }
func (l *mockLayout) Release()                  { l.f.release(&l.released) }

type recordedDraw struct {
	startVertex   uint32
	vertexCount   uint32
	instanceCount uint32
}

type mockRenderAPI struct {
	layout  VertexLayout
	slot    uint32
	buffers []VertexBuffer
	op      DrawOperation
	draws   []recordedDraw
}

func (r *mockRenderAPI) SetVertexLayout(layout VertexLayout) { r.layout = layout }
func (r *mockRenderAPI) SetDrawOperation(op DrawOperation)   { r.op = op }

func (r *mockRenderAPI) SetVertexBuffers(slot uint32, buffers ...VertexBuffer) {
	r.slot = slot
	r.buffers = buffers
}

func (r *mockRenderAPI) Draw(startVertex, vertexCount, instanceCount uint32) {
	r.draws = append(r.draws, recordedDraw{startVertex, vertexCount, instanceCount})
}
