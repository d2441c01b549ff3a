package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestNewParticleCloud(t *testing.T) {
	assert.Empty(t, NewParticleCloud(0, 5))

	cloud := NewParticleCloud(500, 5)
	assert.Len(t, cloud, 500)
	for i, p := range cloud {
		d := mgl32.Vec3(p.Pos).Len()
		assert.GreaterOrEqual(t, d, float32(2.99), "particle %d", i)
		assert.LessOrEqual(t, d, float32(5.01), "particle %d", i)
		assert.Equal(t, [2]float32{0.35, 0.35}, p.Size)
	}

	// Deterministic.
	assert.Equal(t, cloud, NewParticleCloud(500, 5))
}
