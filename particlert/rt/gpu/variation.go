package gpu

import (
	"fmt"
	"strings"
)

// ParticleOrientation decides how a billboard is aligned.
type ParticleOrientation uint8

const (
	// OrientViewPlane aligns billboards with the camera's view plane.
	OrientViewPlane ParticleOrientation = iota
	// OrientViewPosition turns each billboard toward the camera position.
	OrientViewPosition
	// OrientPlane aligns billboards with a fixed, user-provided plane.
	OrientPlane

	orientCount
)

func (o ParticleOrientation) String() string {
	switch o {
	case OrientViewPlane:
		return "ViewPlane"
	case OrientViewPosition:
		return "ViewPosition"
	case OrientPlane:
		return "Plane"
	}
	return fmt.Sprintf("ParticleOrientation(%d)", uint8(o))
}

type ShaderDefine struct {
	Name  string
	Value int
}

// ShaderVariation describes one precompiled form of the particle shader.
// Values live in a package table and are never mutated, so pointers can be
// compared and used as map keys.
type ShaderVariation struct {
	Orientation ParticleOrientation
	LockY       bool
	GPU         bool
	Is3D        bool

	name    string
	defines []ShaderDefine
}

func (v *ShaderVariation) Name() string { return v.name }

// Defines returns the preprocessor values selecting this variation.
func (v *ShaderVariation) Defines() []ShaderDefine {
	return append([]ShaderDefine(nil), v.defines...)
}

const variationsPerOrientation = 8

var particleVariations = buildParticleVariations()

func buildParticleVariations() [int(orientCount) * variationsPerOrientation]ShaderVariation {
	var table [int(orientCount) * variationsPerOrientation]ShaderVariation
	for o := OrientViewPlane; o < orientCount; o++ {
		for _, lockY := range []bool{false, true} {
			for _, gpu := range []bool{false, true} {
				for _, is3D := range []bool{false, true} {
					table[variationKey(o, lockY, gpu, is3D)] = newShaderVariation(o, lockY, gpu, is3D)
				}
			}
		}
	}
	return table
}

func newShaderVariation(o ParticleOrientation, lockY, gpu, is3D bool) ShaderVariation {
	parts := []string{"Particles", o.String()}
	if lockY {
		parts = append(parts, "LockY")
	}
	if gpu {
		parts = append(parts, "GPU")
	}
	if is3D {
		parts = append(parts, "3D")
	}
	return ShaderVariation{
		Orientation: o,
		LockY:       lockY,
		GPU:         gpu,
		Is3D:        is3D,
		name:        strings.Join(parts, "_"),
		defines: []ShaderDefine{
			{Name: "ORIENT", Value: int(o)},
			{Name: "LOCK_Y", Value: boolInt(lockY)},
			{Name: "GPU", Value: boolInt(gpu)},
			{Name: "IS_3D", Value: boolInt(is3D)},
		},
	}
}

func variationKey(o ParticleOrientation, lockY, gpu, is3D bool) int {
	return int(o)*variationsPerOrientation | boolInt(lockY)<<2 | boolInt(gpu)<<1 | boolInt(is3D)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParticleShaderVariation returns the variation for the given axes.
// Unknown orientations fall back to OrientViewPlane.
func ParticleShaderVariation(orient ParticleOrientation, lockY, gpu, is3D bool) *ShaderVariation {
	if orient >= orientCount {
		orient = OrientViewPlane
	}
	return &particleVariations[variationKey(orient, lockY, gpu, is3D)]
}

// ParticleShaderVariations lists every registered variation, for warming up
// pipeline caches.
func ParticleShaderVariations() []*ShaderVariation {
	out := make([]*ShaderVariation, len(particleVariations))
	for i := range particleVariations {
		out[i] = &particleVariations[i]
	}
	return out
}
