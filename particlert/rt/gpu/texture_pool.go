package gpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/google/uuid"
)

// BillboardResources holds the GPU inputs of one billboard particle system
// for one frame.
type BillboardResources struct {
	ID      uuid.UUID
	TexSize uint32

	PositionAndRotation Texture // RGBA32F
	Color               Texture // RGBA8
	SizeAndFrameIdx     Texture // RGBA16F
	Indices             IndexBuffer
}

func (r *BillboardResources) release() {
	releaseAll(r.PositionAndRotation, r.Color, r.SizeAndFrameIdx)
	if r.Indices != nil {
		r.Indices.Release()
	}
}

// MeshResources holds the GPU inputs of one mesh particle system for one
// frame.
type MeshResources struct {
	ID      uuid.UUID
	TexSize uint32

	Position Texture // RGBA32F
	Color    Texture // RGBA8
	Size     Texture // RGBA16F
	Rotation Texture // RGBA16F
	Indices  IndexBuffer
}

func (r *MeshResources) release() {
	releaseAll(r.Position, r.Color, r.Size, r.Rotation)
	if r.Indices != nil {
		r.Indices.Release()
	}
}

func releaseAll(textures ...Texture) {
	for _, t := range textures {
		if t != nil {
			t.Release()
		}
	}
}

// sizeBucket holds every set ever created for one texture size. Sets before
// next are in use this frame.
type sizeBucket[T any] struct {
	sets []*T
	next int
}

type bucketList[T any] struct {
	buckets map[uint32]*sizeBucket[T]
}

// acquire hands out the next free set of the given size, creating one when
// every existing set is already in use this frame.
func (l *bucketList[T]) acquire(size uint32, create func(uint32) (*T, error)) (*T, bool, error) {
	if l.buckets == nil {
		l.buckets = make(map[uint32]*sizeBucket[T])
	}
	b, ok := l.buckets[size]
	if !ok {
		b = &sizeBucket[T]{}
		l.buckets[size] = b
	}

	if b.next < len(b.sets) {
		out := b.sets[b.next]
		b.next++
		return out, false, nil
	}

	out, err := create(size)
	if err != nil {
		return nil, false, err
	}
	b.sets = append(b.sets, out)
	b.next++
	return out, true, nil
}

func (l *bucketList[T]) reset() {
	for _, b := range l.buckets {
		b.next = 0
	}
}

func (l *bucketList[T]) drain(release func(*T)) int {
	n := 0
	for _, b := range l.buckets {
		for _, s := range b.sets {
			release(s)
			n++
		}
	}
	l.buckets = nil
	return n
}

func (l *bucketList[T]) stats() []BucketStats {
	out := make([]BucketStats, 0, len(l.buckets))
	for size, b := range l.buckets {
		out = append(out, BucketStats{Size: size, Sets: len(b.sets), InUse: b.next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Size < out[j].Size })
	return out
}

type BucketStats struct {
	Size  uint32
	Sets  int
	InUse int
}

type PoolStats struct {
	Billboard []BucketStats
	Mesh      []BucketStats
}

// ErrTooManyIndices is returned by the Alloc methods when a frame lists more
// particles than its square textures hold.
var ErrTooManyIndices = errors.New("particle index list exceeds texture capacity")

func checkIndexCount(n int, size uint32) error {
	if uint64(n) > uint64(size)*uint64(size) {
		return fmt.Errorf("%w: %d indices for a %dx%d texture", ErrTooManyIndices, n, size, size)
	}
	return nil
}

// ParticleTexturePool recycles particle textures across frames. Each size
// grows to the peak number of systems drawn in one frame and never shrinks.
// Not safe for concurrent use; it belongs to the render thread.
type ParticleTexturePool struct {
	factory ResourceFactory
	logger  core.Logger

	billboards bucketList[BillboardResources]
	meshes     bucketList[MeshResources]
}

func NewParticleTexturePool(factory ResourceFactory, logger core.Logger) *ParticleTexturePool {
	return &ParticleTexturePool{
		factory: factory,
		logger:  core.ForComponent(logger, "pool"),
	}
}

// AllocBillboard returns a set sized to data and fills it with data. The set
// stays valid until the pool is cleared and the set is handed out again.
// A frame with more indices than texels fails with ErrTooManyIndices and
// leaves the pool as it was.
func (p *ParticleTexturePool) AllocBillboard(data core.BillboardFrameData) (*BillboardResources, error) {
	size := data.TexSize()
	if err := checkIndexCount(len(data.Indices), size); err != nil {
		return nil, err
	}
	out, created, err := p.billboards.acquire(size, p.createBillboardResources)
	if err != nil {
		return nil, err
	}
	if created {
		p.logger.Debugf("new billboard set %s, size %d", out.ID, size)
	}

	if err := out.PositionAndRotation.WriteData(data.PositionAndRotation, true); err != nil {
		return nil, fmt.Errorf("write billboard positions: %w", err)
	}
	if err := out.Color.WriteData(data.Color, true); err != nil {
		return nil, fmt.Errorf("write billboard colors: %w", err)
	}
	if err := out.SizeAndFrameIdx.WriteData(data.SizeAndFrameIdx, true); err != nil {
		return nil, fmt.Errorf("write billboard sizes: %w", err)
	}

	WriteIndices(out.Indices, data.Indices, size)
	return out, nil
}

// AllocMesh is AllocBillboard for mesh particles.
func (p *ParticleTexturePool) AllocMesh(data core.MeshFrameData) (*MeshResources, error) {
	size := data.TexSize()
	if err := checkIndexCount(len(data.Indices), size); err != nil {
		return nil, err
	}
	out, created, err := p.meshes.acquire(size, p.createMeshResources)
	if err != nil {
		return nil, err
	}
	if created {
		p.logger.Debugf("new mesh set %s, size %d", out.ID, size)
	}

	if err := out.Position.WriteData(data.Position, true); err != nil {
		return nil, fmt.Errorf("write mesh positions: %w", err)
	}
	if err := out.Color.WriteData(data.Color, true); err != nil {
		return nil, fmt.Errorf("write mesh colors: %w", err)
	}
	if err := out.Size.WriteData(data.Size, true); err != nil {
		return nil, fmt.Errorf("write mesh sizes: %w", err)
	}
	if err := out.Rotation.WriteData(data.Rotation, true); err != nil {
		return nil, fmt.Errorf("write mesh rotations: %w", err)
	}

	WriteIndices(out.Indices, data.Indices, size)
	return out, nil
}

// Clear makes every set available again. Call once at the start of a frame.
func (p *ParticleTexturePool) Clear() {
	p.billboards.reset()
	p.meshes.reset()
}

// Release destroys every set. The pool is empty but usable afterwards.
func (p *ParticleTexturePool) Release() {
	nb := p.billboards.drain((*BillboardResources).release)
	nm := p.meshes.drain((*MeshResources).release)
	p.logger.Debugf("released %d billboard and %d mesh sets", nb, nm)
}

func (p *ParticleTexturePool) Stats() PoolStats {
	return PoolStats{
		Billboard: p.billboards.stats(),
		Mesh:      p.meshes.stats(),
	}
}

func (p *ParticleTexturePool) createBillboardResources(size uint32) (res *BillboardResources, err error) {
	res = &BillboardResources{ID: uuid.New(), TexSize: size}
	defer func() {
		if err != nil {
			res.release()
			res = nil
		}
	}()

	label := fmt.Sprintf("ParticleBillboard/%d/%s", size, res.ID)
	if res.PositionAndRotation, err = p.newTexture(label+"/PositionAndRotation", size, core.PixelFormatRGBA32F); err != nil {
		return
	}
	if res.Color, err = p.newTexture(label+"/Color", size, core.PixelFormatRGBA8); err != nil {
		return
	}
	if res.SizeAndFrameIdx, err = p.newTexture(label+"/SizeAndFrameIdx", size, core.PixelFormatRGBA16F); err != nil {
		return
	}
	res.Indices, err = p.newIndexBuffer(label+"/Indices", size)
	return
}

func (p *ParticleTexturePool) createMeshResources(size uint32) (res *MeshResources, err error) {
	res = &MeshResources{ID: uuid.New(), TexSize: size}
	defer func() {
		if err != nil {
			res.release()
			res = nil
		}
	}()

	label := fmt.Sprintf("ParticleMesh/%d/%s", size, res.ID)
	if res.Position, err = p.newTexture(label+"/Position", size, core.PixelFormatRGBA32F); err != nil {
		return
	}
	if res.Color, err = p.newTexture(label+"/Color", size, core.PixelFormatRGBA8); err != nil {
		return
	}
	if res.Size, err = p.newTexture(label+"/Size", size, core.PixelFormatRGBA16F); err != nil {
		return
	}
	if res.Rotation, err = p.newTexture(label+"/Rotation", size, core.PixelFormatRGBA16F); err != nil {
		return
	}
	res.Indices, err = p.newIndexBuffer(label+"/Indices", size)
	return
}

func (p *ParticleTexturePool) newTexture(label string, size uint32, format core.PixelFormat) (Texture, error) {
	return p.factory.CreateTexture(TextureDesc{
		Label:  label,
		Width:  size,
		Height: size,
		Format: format,
		Usage:  TextureUsageDynamic,
	})
}

func (p *ParticleTexturePool) newIndexBuffer(label string, size uint32) (IndexBuffer, error) {
	return p.factory.CreateIndexBuffer(BufferDesc{
		Label:        label,
		ElementCount: size * size,
		Format:       BufferFormat16x2U,
	})
}
