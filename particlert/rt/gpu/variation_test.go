package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleShaderVariation_DistinctAndStable(t *testing.T) {
	seen := make(map[*ShaderVariation]bool)
	names := make(map[string]bool)
	bools := []bool{false, true}

	for _, o := range []ParticleOrientation{OrientViewPlane, OrientViewPosition, OrientPlane} {
		for _, lockY := range bools {
			for _, gpu := range bools {
				for _, is3D := range bools {
					v := ParticleShaderVariation(o, lockY, gpu, is3D)
					require.NotNil(t, v)
					assert.Same(t, v, ParticleShaderVariation(o, lockY, gpu, is3D))

					assert.Equal(t, o, v.Orientation)
					assert.Equal(t, lockY, v.LockY)
					assert.Equal(t, gpu, v.GPU)
					assert.Equal(t, is3D, v.Is3D)

					assert.False(t, seen[v], "duplicate variation %s", v.Name())
					assert.False(t, names[v.Name()], "duplicate name %s", v.Name())
					seen[v] = true
					names[v.Name()] = true
				}
			}
		}
	}
	assert.Len(t, seen, 24)
	assert.Len(t, ParticleShaderVariations(), 24)
}

func TestParticleShaderVariation_UnknownOrientationFallsBack(t *testing.T) {
	for _, o := range []ParticleOrientation{orientCount, 7, 255} {
		assert.Same(t,
			ParticleShaderVariation(OrientViewPlane, true, false, true),
			ParticleShaderVariation(o, true, false, true))
	}
}

func TestShaderVariation_Defines(t *testing.T) {
	v := ParticleShaderVariation(OrientPlane, true, false, true)
	assert.Equal(t, "Particles_Plane_LockY_3D", v.Name())
	assert.Equal(t, []ShaderDefine{
		{Name: "ORIENT", Value: 2},
		{Name: "LOCK_Y", Value: 1},
		{Name: "GPU", Value: 0},
		{Name: "IS_3D", Value: 1},
	}, v.Defines())

	// Callers get a copy; the registered descriptor cannot be changed.
	d := v.Defines()
	d[0].Value = 99
	assert.Equal(t, 2, v.Defines()[0].Value)
}
