package shaders

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gekko3d/particles/particlert/rt/gpu"
)

//go:embed particles_billboard.wgsl
var ParticlesBillboardWGSL string

// DefinesMarker is the line a shader source reserves for variation constants.
const DefinesMarker = "// @particles:defines"

// VariantSource replaces the defines marker in base with one WGSL u32 constant
// per define, in the order given.
func VariantSource(base string, defines []gpu.ShaderDefine) (string, error) {
	if !strings.Contains(base, DefinesMarker) {
		return "", fmt.Errorf("shader source has no %q line", DefinesMarker)
	}

	var sb strings.Builder
	for _, d := range defines {
		if d.Value < 0 {
			return "", fmt.Errorf("define %s: negative value %d", d.Name, d.Value)
		}
		fmt.Fprintf(&sb, "const %s: u32 = %du;\n", d.Name, d.Value)
	}
	return strings.Replace(base, DefinesMarker, strings.TrimSuffix(sb.String(), "\n"), 1), nil
}

// ParticleVariantSource returns the billboard shader specialized for v.
func ParticleVariantSource(v *gpu.ShaderVariation) (string, error) {
	src, err := VariantSource(ParticlesBillboardWGSL, v.Defines())
	if err != nil {
		return "", fmt.Errorf("variation %s: %w", v.Name(), err)
	}
	return src, nil
}
