package core

// ParticleInstance is one billboard particle as produced by a CPU simulation.
// Rotation is in radians around the view axis; FrameIdx selects a sub-image
// of a sprite sheet.
type ParticleInstance struct {
	Pos      [3]float32
	Size     [2]float32
	Color    [4]float32
	Rotation float32
	FrameIdx float32
}

// MeshParticleInstance is one mesh particle. Rotation holds Euler angles in
// radians.
type MeshParticleInstance struct {
	Pos      [3]float32
	Size     [3]float32
	Rotation [3]float32
	Color    [4]float32
}

// BillboardFrameData is the per-frame output of a billboard particle system.
// All images are square with edge TexSize(); Indices lists the particles to draw
// in draw order.
type BillboardFrameData struct {
	PositionAndRotation PixelData // RGBA32F: xyz position, w rotation
	Color               PixelData // RGBA8
	SizeAndFrameIdx     PixelData // RGBA16F: xy size, z frame index
	Indices             []uint32
}

func (d BillboardFrameData) TexSize() uint32 { return d.Color.Width }

// MeshFrameData is the per-frame output of a mesh particle system.
type MeshFrameData struct {
	Position PixelData // RGBA32F
	Color    PixelData // RGBA8
	Size     PixelData // RGBA16F
	Rotation PixelData // RGBA16F
	Indices  []uint32
}

func (d MeshFrameData) TexSize() uint32 { return d.Color.Width }

// TextureSizeFor returns the smallest power-of-two edge whose square holds n
// particles. Never returns less than 1.
func TextureSizeFor(n int) uint32 {
	size := uint32(1)
	for uint64(size)*uint64(size) < uint64(n) {
		size <<= 1
	}
	return size
}

// BillboardFrameDataFromInstances packs instances row-major into square
// images and fills Indices with 0..n-1.
func BillboardFrameDataFromInstances(instances []ParticleInstance) BillboardFrameData {
	size := TextureSizeFor(len(instances))
	d := BillboardFrameData{
		PositionAndRotation: NewPixelData(PixelFormatRGBA32F, size, size),
		Color:               NewPixelData(PixelFormatRGBA8, size, size),
		SizeAndFrameIdx:     NewPixelData(PixelFormatRGBA16F, size, size),
		Indices:             make([]uint32, len(instances)),
	}

	for i, p := range instances {
		x, y := uint32(i)%size, uint32(i)/size
		d.PositionAndRotation.SetRGBA32F(x, y, [4]float32{p.Pos[0], p.Pos[1], p.Pos[2], p.Rotation})
		d.Color.SetRGBA8(x, y, UnormColor(p.Color))
		d.SizeAndFrameIdx.SetRGBA16F(x, y, [4]float32{p.Size[0], p.Size[1], p.FrameIdx, 0})
		d.Indices[i] = uint32(i)
	}
	return d
}

// MeshFrameDataFromInstances is the mesh counterpart of
// BillboardFrameDataFromInstances.
func MeshFrameDataFromInstances(instances []MeshParticleInstance) MeshFrameData {
	size := TextureSizeFor(len(instances))
	d := MeshFrameData{
		Position: NewPixelData(PixelFormatRGBA32F, size, size),
		Color:    NewPixelData(PixelFormatRGBA8, size, size),
		Size:     NewPixelData(PixelFormatRGBA16F, size, size),
		Rotation: NewPixelData(PixelFormatRGBA16F, size, size),
		Indices:  make([]uint32, len(instances)),
	}

	for i, p := range instances {
		x, y := uint32(i)%size, uint32(i)/size
		d.Position.SetRGBA32F(x, y, [4]float32{p.Pos[0], p.Pos[1], p.Pos[2], 1})
		d.Color.SetRGBA8(x, y, UnormColor(p.Color))
		d.Size.SetRGBA16F(x, y, [4]float32{p.Size[0], p.Size[1], p.Size[2], 0})
		d.Rotation.SetRGBA16F(x, y, [4]float32{p.Rotation[0], p.Rotation[1], p.Rotation[2], 0})
		d.Indices[i] = uint32(i)
	}
	return d
}
