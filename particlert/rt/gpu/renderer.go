package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// BillboardVertex matches the WGSL vertex input of the billboard shader.
type BillboardVertex struct {
	Pos mgl32.Vec3
	UV  mgl32.Vec2
}

// Unit quad in triangle-strip order, centred on the origin.
var billboardQuad = [4]BillboardVertex{
	{Pos: mgl32.Vec3{-0.5, -0.5, 0}, UV: mgl32.Vec2{0, 1}},
	{Pos: mgl32.Vec3{-0.5, 0.5, 0}, UV: mgl32.Vec2{0, 0}},
	{Pos: mgl32.Vec3{0.5, -0.5, 0}, UV: mgl32.Vec2{1, 1}},
	{Pos: mgl32.Vec3{0.5, 0.5, 0}, UV: mgl32.Vec2{1, 0}},
}

var billboardElements = []VertexElement{
	{Type: VertexFloat3, Semantic: SemanticPosition},
	{Type: VertexFloat2, Semantic: SemanticTexCoord},
}

// ParticleRenderer draws particles as instanced billboards and orders them
// for blending. It belongs to the render thread.
type ParticleRenderer struct {
	billboardVB VertexBuffer
	billboardVD VertexLayout

	arena  frameArena
	logger core.Logger
}

func NewParticleRenderer(factory ResourceFactory, logger core.Logger) (*ParticleRenderer, error) {
	r := &ParticleRenderer{logger: core.ForComponent(logger, "renderer")}

	vd, err := factory.CreateVertexLayout(billboardElements)
	if err != nil {
		return nil, fmt.Errorf("billboard vertex layout: %w", err)
	}

	vb, err := factory.CreateVertexBuffer(VertexBufferDesc{
		Label:      "ParticleBillboardVB",
		NumVerts:   uint32(len(billboardQuad)),
		VertexSize: vd.VertexSize(),
	})
	if err != nil {
		vd.Release()
		return nil, fmt.Errorf("billboard vertex buffer: %w", err)
	}

	data := encodeVertices(billboardQuad[:], vd.VertexSize())
	if err := vb.WriteData(data, true); err != nil {
		vb.Release()
		vd.Release()
		return nil, fmt.Errorf("upload billboard quad: %w", err)
	}

	r.billboardVB = vb
	r.billboardVD = vd
	r.logger.Debugf("uploaded billboard quad (%d bytes)", len(data))
	return r, nil
}

func encodeVertices(vertices []BillboardVertex, stride uint32) []byte {
	buf := make([]byte, len(vertices)*int(stride))
	for i, v := range vertices {
		o := i * int(stride)
		putFloats(buf[o:], v.Pos[:]...)
		putFloats(buf[o+12:], v.UV[:]...)
	}
	return buf
}

// BillboardLayout is the vertex layout pipelines drawing billboards must use.
func (r *ParticleRenderer) BillboardLayout() VertexLayout { return r.billboardVD }

// DrawBillboards draws count instances of the unit quad. Per-instance data
// must already be bound by the caller.
func (r *ParticleRenderer) DrawBillboards(api RenderAPI, count uint32) {
	api.SetVertexLayout(r.billboardVD)
	api.SetVertexBuffers(0, r.billboardVB)
	api.SetDrawOperation(DrawTriangleStrip)
	api.Draw(0, uint32(len(billboardQuad)), count)
}

// SortByDistance writes into indices the first numParticles particle indices
// ordered farthest first from ref. Positions are read as three floats at the
// start of each texel; stride is the number of floats per texel and must
// match the image format. Ties come out in no particular order.
func (r *ParticleRenderer) SortByDistance(ref mgl32.Vec3, positions core.PixelData, numParticles, stride uint32, indices []uint32) {
	if numParticles == 0 {
		return
	}

	m := r.arena.mark()
	defer r.arena.clear(m)
	entries := r.arena.alloc(int(numParticles))

	width := positions.Width
	rowSkip := int(positions.RowSkip())
	data := positions.Data

	off, x := 0, uint32(0)
	for i := uint32(0); i < numParticles; i++ {
		pos := mgl32.Vec3{
			readFloat(data, off),
			readFloat(data, off+4),
			readFloat(data, off+8),
		}
		d := ref.Sub(pos)
		entries[i] = sortEntry{key: d.Dot(d), idx: i}

		off += 4 * int(stride)
		x++
		if x >= width {
			x = 0
			off += rowSkip
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[j].key < entries[i].key })

	for i := range entries {
		indices[i] = entries[i].idx
	}
}

func readFloat(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func (r *ParticleRenderer) Release() {
	if r.billboardVB != nil {
		r.billboardVB.Release()
		r.billboardVB = nil
	}
	if r.billboardVD != nil {
		r.billboardVD.Release()
		r.billboardVD = nil
	}
}

type sortEntry struct {
	key float32
	idx uint32
}

// frameArena is scratch memory with stack discipline: space returned by alloc
// is reclaimed by clearing back to an earlier mark, and must not be used
// after that.
type frameArena struct {
	buf []sortEntry
	top int
}

func (a *frameArena) mark() int { return a.top }

func (a *frameArena) alloc(n int) []sortEntry {
	end := a.top + n
	if end > len(a.buf) {
		grown := make([]sortEntry, max(end, 2*len(a.buf)))
		copy(grown, a.buf[:a.top])
		a.buf = grown
	}
	s := a.buf[a.top:end:end]
	a.top = end
	return s
}

func (a *frameArena) clear(mark int) {
	if mark < a.top {
		a.top = mark
	}
}
