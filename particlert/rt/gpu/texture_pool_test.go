package gpu

import (
	"errors"
	"testing"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billboardFrame(n int) core.BillboardFrameData {
	instances := make([]core.ParticleInstance, n)
	for i := range instances {
		instances[i].Pos = [3]float32{float32(i), 0, 0}
		instances[i].Color = [4]float32{1, 1, 1, 1}
	}
	return core.BillboardFrameDataFromInstances(instances)
}

func meshFrame(n int) core.MeshFrameData {
	return core.MeshFrameDataFromInstances(make([]core.MeshParticleInstance, n))
}

func TestParticleTexturePool_ReusesSetsAcrossFrames(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, nil)
	frame := billboardFrame(10)

	var first []*BillboardResources
	for i := 0; i < 3; i++ {
		res, err := pool.AllocBillboard(frame)
		require.NoError(t, err)
		first = append(first, res)
	}
	assert.NotSame(t, first[0], first[1])
	assert.NotSame(t, first[1], first[2])
	createdAfterFirst := f.created

	// Lower demand next frame: same sets in the same order, nothing new.
	pool.Clear()
	for i := 0; i < 2; i++ {
		res, err := pool.AllocBillboard(frame)
		require.NoError(t, err)
		assert.Same(t, first[i], res)
	}
	assert.Equal(t, createdAfterFirst, f.created)

	// Equal demand.
	pool.Clear()
	for i := 0; i < 3; i++ {
		res, err := pool.AllocBillboard(frame)
		require.NoError(t, err)
		assert.Same(t, first[i], res)
	}
	assert.Equal(t, createdAfterFirst, f.created)

	// Past the peak the bucket grows by exactly one set.
	res, err := pool.AllocBillboard(frame)
	require.NoError(t, err)
	for _, prev := range first {
		assert.NotSame(t, prev, res)
	}
	assert.Equal(t, createdAfterFirst+4, f.created)

	stats := pool.Stats()
	require.Len(t, stats.Billboard, 1)
	assert.Equal(t, BucketStats{Size: 4, Sets: 4, InUse: 4}, stats.Billboard[0])
	assert.Empty(t, stats.Mesh)
}

func TestParticleTexturePool_GrowsOnePerAlloc(t *testing.T) {
	for n := 0; n <= 5; n++ {
		f := &mockFactory{}
		pool := NewParticleTexturePool(f, nil)
		for i := 0; i < n; i++ {
			_, err := pool.AllocBillboard(billboardFrame(3))
			require.NoError(t, err)
		}
		// Three textures and one index buffer per set.
		assert.Equal(t, 4*n, f.created, "n=%d", n)
		pool.Release()
	}
}

func TestParticleTexturePool_BucketsBySize(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, nil)

	small, err := pool.AllocBillboard(billboardFrame(4))
	require.NoError(t, err)
	large, err := pool.AllocBillboard(billboardFrame(100))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), small.TexSize)
	assert.Equal(t, uint32(16), large.TexSize)
	assert.NotEqual(t, small.ID, large.ID)

	pool.Clear()
	again, err := pool.AllocBillboard(billboardFrame(90))
	require.NoError(t, err)
	assert.Same(t, large, again)

	stats := pool.Stats()
	require.Len(t, stats.Billboard, 2)
	assert.Equal(t, BucketStats{Size: 2, Sets: 1, InUse: 0}, stats.Billboard[0])
	assert.Equal(t, BucketStats{Size: 16, Sets: 1, InUse: 1}, stats.Billboard[1])
}

func TestParticleTexturePool_WritesEverythingWithDiscard(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, nil)
	frame := billboardFrame(5)
	frame.Indices = []uint32{4, 0, 3}

	res, err := pool.AllocBillboard(frame)
	require.NoError(t, err)

	for _, tex := range []Texture{res.PositionAndRotation, res.Color, res.SizeAndFrameIdx} {
		mt := tex.(*mockTexture)
		assert.Equal(t, 1, mt.writes)
		assert.True(t, mt.discard)
		assert.Equal(t, TextureUsageDynamic, mt.desc.Usage)
		assert.Equal(t, uint32(4), mt.desc.Width)
		assert.Equal(t, uint32(4), mt.desc.Height)
	}
	assert.Equal(t, core.PixelFormatRGBA32F, res.PositionAndRotation.(*mockTexture).desc.Format)
	assert.Equal(t, core.PixelFormatRGBA8, res.Color.(*mockTexture).desc.Format)
	assert.Equal(t, core.PixelFormatRGBA16F, res.SizeAndFrameIdx.(*mockTexture).desc.Format)
	assert.Equal(t, frame.Color.Data, res.Color.(*mockTexture).last.Data)

	ib := res.Indices.(*mockIndexBuffer)
	assert.Equal(t, uint32(16), ib.desc.ElementCount)
	assert.Equal(t, BufferFormat16x2U, ib.desc.Format)
	assert.Equal(t, 1, ib.locks)
	assert.Equal(t, 1, ib.unlocks)
	assert.Equal(t, []uint32{0 | 1<<16, 0, 3}, ib.data[:3])

	// Reuse overwrites again.
	pool.Clear()
	_, err = pool.AllocBillboard(frame)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Color.(*mockTexture).writes)
}

func TestParticleTexturePool_Mesh(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, nil)

	a, err := pool.AllocMesh(meshFrame(7))
	require.NoError(t, err)
	b, err := pool.AllocMesh(meshFrame(7))
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 10, f.created)

	assert.Equal(t, core.PixelFormatRGBA32F, a.Position.(*mockTexture).desc.Format)
	assert.Equal(t, core.PixelFormatRGBA8, a.Color.(*mockTexture).desc.Format)
	assert.Equal(t, core.PixelFormatRGBA16F, a.Size.(*mockTexture).desc.Format)
	assert.Equal(t, core.PixelFormatRGBA16F, a.Rotation.(*mockTexture).desc.Format)

	// Billboard and mesh sets of the same size never mix.
	bb, err := pool.AllocBillboard(billboardFrame(7))
	require.NoError(t, err)
	assert.Equal(t, a.TexSize, bb.TexSize)

	pool.Clear()
	again, err := pool.AllocMesh(meshFrame(9))
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestParticleTexturePool_ReleaseLeaksNothing(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, core.NewNopLogger())

	for frame := 0; frame < 3; frame++ {
		pool.Clear()
		for i := 0; i <= frame; i++ {
			_, err := pool.AllocBillboard(billboardFrame(i * 20))
			require.NoError(t, err)
			_, err = pool.AllocMesh(meshFrame(i * 20))
			require.NoError(t, err)
		}
	}
	require.Greater(t, f.created, 0)

	pool.Release()
	assert.Equal(t, 0, f.live())
	assert.Equal(t, 0, f.doubleReleased)
	assert.Empty(t, pool.Stats().Billboard)
	assert.Empty(t, pool.Stats().Mesh)
}

func TestParticleTexturePool_CreationFailure(t *testing.T) {
	f := &mockFactory{failTexture: 2}
	pool := NewParticleTexturePool(f, nil)

	res, err := pool.AllocBillboard(billboardFrame(3))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errOutOfMemory))

	// The texture created before the failure was released.
	assert.Equal(t, 0, f.live())

	// The failed set was not recorded; the next alloc creates a full set.
	res, err = pool.AllocBillboard(billboardFrame(3))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, BucketStats{Size: 2, Sets: 1, InUse: 1}, pool.Stats().Billboard[0])

	pool.Release()
	assert.Equal(t, 0, f.live())
	assert.Equal(t, 0, f.doubleReleased)
}

func TestParticleTexturePool_TooManyIndices(t *testing.T) {
	f := &mockFactory{}
	pool := NewParticleTexturePool(f, nil)

	// A 2x2 frame can address four particles, not five.
	frame := billboardFrame(4)
	frame.Indices = []uint32{0, 1, 2, 3, 0}
	res, err := pool.AllocBillboard(frame)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTooManyIndices)

	mesh := meshFrame(4)
	mesh.Indices = make([]uint32, 5)
	meshRes, err := pool.AllocMesh(mesh)
	assert.Nil(t, meshRes)
	assert.ErrorIs(t, err, ErrTooManyIndices)

	// Nothing was created or handed out.
	assert.Equal(t, 0, f.created)
	assert.Empty(t, pool.Stats().Billboard)
	assert.Empty(t, pool.Stats().Mesh)

	// A full square is fine.
	frame.Indices = frame.Indices[:4]
	res, err = pool.AllocBillboard(frame)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.TexSize)
}
