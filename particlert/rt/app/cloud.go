package app

import (
	"math"

	"github.com/gekko3d/particles/particlert/rt/core"
)

const goldenAngle = math.Pi * (3 - 2.23606797749979) // pi * (3 - sqrt(5))

// NewParticleCloud lays n particles on a Fibonacci sphere whose radius
// wobbles between 0.6 and 1.0 times radius. Color runs from warm at the
// bottom to cool at the top. The layout only depends on n.
func NewParticleCloud(n int, radius float32) []core.ParticleInstance {
	out := make([]core.ParticleInstance, n)
	for i := range out {
		t := (float64(i) + 0.5) / float64(n)
		y := 1 - 2*t
		ring := math.Sqrt(1 - y*y)
		theta := goldenAngle * float64(i)

		r := float64(radius) * (0.8 + 0.2*math.Sin(float64(i)*0.7))
		out[i] = core.ParticleInstance{
			Pos: [3]float32{
				float32(r * ring * math.Cos(theta)),
				float32(r * y),
				float32(r * ring * math.Sin(theta)),
			},
			Size:     [2]float32{0.35, 0.35},
			Color:    [4]float32{float32(t), 0.4, float32(1 - t), 0.8},
			Rotation: float32(theta),
		}
	}
	return out
}
