package main

import (
	"flag"
	"runtime"

	"github.com/gekko3d/particles/particlert/rt/app"
	"github.com/gekko3d/particles/particlert/rt/gpu"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging and per-second frame stats")
	particles := flag.Int("particles", app.DefaultParticles, "Number of particles in the cloud")
	orient := flag.Int("orient", int(gpu.OrientViewPlane), "Billboard orientation: 0 view plane, 1 view position, 2 plane")
	lockY := flag.Bool("locky", false, "Keep billboards upright")
	flag.Parse()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "Particles", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, app.Options{
		Particles:   *particles,
		Orientation: gpu.ParticleOrientation(*orient),
		LockY:       *lockY,
		Debug:       *debug,
	})
	if err := application.Init(); err != nil {
		panic(err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}
