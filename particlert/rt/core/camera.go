package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is a Y-up camera orbiting Target at Distance.
type CameraState struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
	FovY     float32 // degrees
	Near     float32
	Far      float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Target:   mgl32.Vec3{0, 0, 0},
		Distance: 12,
		Pitch:    0.35,
		FovY:     60,
		Near:     0.1,
		Far:      500,
	}
}

func (c *CameraState) GetPosition() mgl32.Vec3 {
	cp, sp := float32(math.Cos(float64(c.Pitch))), float32(math.Sin(float64(c.Pitch)))
	cy, sy := float32(math.Cos(float64(c.Yaw))), float32(math.Sin(float64(c.Yaw)))
	offset := mgl32.Vec3{cp * sy, sp, cp * cy}
	return c.Target.Add(offset.Mul(c.Distance))
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	return c.Target.Sub(c.GetPosition()).Normalize()
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return c.GetForward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *CameraState) GetUp() mgl32.Vec3 {
	return c.GetRight().Cross(c.GetForward()).Normalize()
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.GetPosition(), c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// Orbit advances the yaw and clamps pitch short of the poles so the view
// basis stays defined.
func (c *CameraState) Orbit(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch += dPitch
	const limit = 1.5
	if c.Pitch > limit {
		c.Pitch = limit
	}
	if c.Pitch < -limit {
		c.Pitch = -limit
	}
}
