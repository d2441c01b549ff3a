package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/gpu"
	"github.com/gekko3d/particles/particlert/rt/shaders"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultParticles = 4096
	// Index entries carry 16 bits per texel coordinate.
	MaxParticles = 4096 * 4096

	cloudRadius = 5
	spriteSize  = 64
)

type Options struct {
	Particles   int
	Orientation gpu.ParticleOrientation
	LockY       bool
	Debug       bool
}

func (o Options) validate() (Options, error) {
	if o.Particles == 0 {
		o.Particles = DefaultParticles
	}
	if o.Particles < 0 || o.Particles > MaxParticles {
		return o, fmt.Errorf("particle count %d out of range [1, %d]", o.Particles, MaxParticles)
	}
	return o, nil
}

type App struct {
	Window   *glfw.Window
	Options  Options
	Logger   core.Logger
	Camera   *core.CameraState
	Profiler *Profiler

	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Factory  *gpu.WgpuFactory
	Renderer *gpu.ParticleRenderer
	Pool     *gpu.ParticleTexturePool

	Frame     core.BillboardFrameData
	Variation *gpu.ShaderVariation

	CameraBuf *wgpu.Buffer
	ParamsBuf *wgpu.Buffer
	Sprite    gpu.Texture
	Sampler   *wgpu.Sampler

	frameLayout    *wgpu.BindGroupLayout
	resourceLayout *wgpu.BindGroupLayout
	spriteLayout   *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	frameGroup     *wgpu.BindGroup
	spriteGroup    *wgpu.BindGroup

	pipelines      map[*gpu.ShaderVariation]*wgpu.RenderPipeline
	resourceGroups map[*gpu.BillboardResources]*wgpu.BindGroup

	LastTime  float64
	statsTime float64
}

func NewApp(window *glfw.Window, opts Options) *App {
	return &App{
		Window:         window,
		Options:        opts,
		Logger:         core.NewDefaultLogger("particles", opts.Debug),
		Camera:         core.NewCameraState(),
		Profiler:       NewProfiler(),
		pipelines:      make(map[*gpu.ShaderVariation]*wgpu.RenderPipeline),
		resourceGroups: make(map[*gpu.BillboardResources]*wgpu.BindGroup),
	}
}

func (a *App) Init() error {
	opts, err := a.Options.validate()
	if err != nil {
		return err
	}
	a.Options = opts

	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	a.Adapter, err = a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Device, err = a.Adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(a.Adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(a.Adapter, a.Device, a.Config)

	a.Factory = gpu.NewWgpuFactory(a.Device, a.Logger)
	a.Renderer, err = gpu.NewParticleRenderer(a.Factory, a.Logger)
	if err != nil {
		return err
	}
	a.Pool = gpu.NewParticleTexturePool(a.Factory, a.Logger)

	if err := a.setupSprite(); err != nil {
		return err
	}
	if err := a.setupLayouts(); err != nil {
		return err
	}
	if err := a.setupFrameResources(); err != nil {
		return err
	}

	a.Frame = core.BillboardFrameDataFromInstances(NewParticleCloud(a.Options.Particles, cloudRadius))
	a.Variation = gpu.ParticleShaderVariation(a.Options.Orientation, a.Options.LockY, false, false)
	if _, err := a.pipelineFor(a.Variation); err != nil {
		return err
	}

	a.Logger.Infof("%d particles, %s, texture %dx%d", a.Options.Particles, a.Variation.Name(), a.Frame.TexSize(), a.Frame.TexSize())
	return nil
}

func (a *App) setupSprite() error {
	pixels := core.SpritePixelData(core.NewDiscSprite(spriteSize, 4))
	sprite, err := a.Factory.CreateTexture(gpu.TextureDesc{
		Label:  "ParticleSprite",
		Width:  pixels.Width,
		Height: pixels.Height,
		Format: pixels.Format,
		Usage:  gpu.TextureUsageStatic,
	})
	if err != nil {
		return err
	}
	a.Sprite = sprite
	if err := sprite.WriteData(pixels, false); err != nil {
		return fmt.Errorf("upload sprite: %w", err)
	}

	a.Sampler, err = a.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	return err
}

func (a *App) setupLayouts() error {
	var err error
	a.frameLayout, err = a.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleFrameBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(gpu.CameraParamLayout.Size),
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(gpu.ParticlesParamLayout.Size),
				},
			},
		},
	})
	if err != nil {
		return err
	}

	// Particle data is read with textureLoad; RGBA32F cannot be filtered.
	dataTexture := wgpu.TextureBindingLayout{
		SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
		ViewDimension: wgpu.TextureViewDimension2D,
	}
	a.resourceLayout, err = a.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleResourcesBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Texture: dataTexture},
			{Binding: 1, Visibility: wgpu.ShaderStageVertex, Texture: dataTexture},
			{Binding: 2, Visibility: wgpu.ShaderStageVertex, Texture: dataTexture},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return err
	}

	a.spriteLayout, err = a.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleSpriteBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return err
	}

	a.pipelineLayout, err = a.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ParticlePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{a.frameLayout, a.resourceLayout, a.spriteLayout},
	})
	return err
}

func (a *App) setupFrameResources() error {
	var err error
	a.CameraBuf, err = a.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleCameraParams",
		Size:  uint64(gpu.CameraParamLayout.Size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	a.ParamsBuf, err = a.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleParams",
		Size:  uint64(gpu.ParticlesParamLayout.Size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	a.frameGroup, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleFrameBG",
		Layout: a.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: a.CameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: a.ParamsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return err
	}

	a.spriteGroup, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleSpriteBG",
		Layout: a.spriteLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: a.Sprite.(*gpu.WgpuTexture).View},
			{Binding: 1, Sampler: a.Sampler},
		},
	})
	return err
}

// pipelineFor compiles one pipeline per shader variation and caches it.
func (a *App) pipelineFor(v *gpu.ShaderVariation) (*wgpu.RenderPipeline, error) {
	if p, ok := a.pipelines[v]; ok {
		return p, nil
	}

	src, err := shaders.ParticleVariantSource(v)
	if err != nil {
		return nil, err
	}
	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          v.Name(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", v.Name(), err)
	}
	defer module.Release()

	layout, ok := a.Renderer.BillboardLayout().(*gpu.WgpuVertexLayout)
	if !ok {
		return nil, fmt.Errorf("billboard layout is %T, not a WebGPU layout", a.Renderer.BillboardLayout())
	}

	pipeline, err := a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  v.Name(),
		Layout: a.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{layout.BufferLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    a.Config.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					},
					Alpha: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					},
				},
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  gpu.WgpuTopology(gpu.DrawTriangleStrip),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", v.Name(), err)
	}

	a.Logger.Debugf("compiled pipeline %s", v.Name())
	a.pipelines[v] = pipeline
	return pipeline, nil
}

// resourceGroup binds a pooled resource set. Pool sets live until the pool
// is released, so the bind group is built once per set.
func (a *App) resourceGroup(res *gpu.BillboardResources) (*wgpu.BindGroup, error) {
	if bg, ok := a.resourceGroups[res]; ok {
		return bg, nil
	}

	view := func(t gpu.Texture) *wgpu.TextureView { return t.(*gpu.WgpuTexture).View }
	bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleResources/" + res.ID.String(),
		Layout: a.resourceLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view(res.PositionAndRotation)},
			{Binding: 1, TextureView: view(res.Color)},
			{Binding: 2, TextureView: view(res.SizeAndFrameIdx)},
			{Binding: 3, Buffer: res.Indices.(*gpu.WgpuIndexBuffer).Buffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, err
	}
	a.resourceGroups[res] = bg
	return bg, nil
}

// particleParams picks the billboard axes for the active orientation.
func (a *App) particleParams(texSize uint32) gpu.ParticlesParams {
	params := gpu.DefaultParticlesParams(texSize)
	switch a.Variation.Orientation {
	case gpu.OrientViewPlane:
		params.AxisUp = a.Camera.GetUp()
		params.AxisRight = a.Camera.GetRight()
	case gpu.OrientPlane:
		// Flat on the ground plane.
		params.AxisUp = mgl32.Vec3{0, 0, 1}
		params.AxisRight = mgl32.Vec3{1, 0, 0}
	}
	return params
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
	}
}

func (a *App) Update() {
	now := glfw.GetTime()
	if a.LastTime == 0 {
		a.LastTime = now
	}
	dt := float32(now - a.LastTime)
	a.LastTime = now

	a.Camera.Orbit(0.25*dt, 0)

	if a.Logger.DebugEnabled() && now-a.statsTime >= 1 {
		a.statsTime = now
		a.Logger.Debugf("\n%s", a.Profiler.String())
	}
}

func (a *App) Render() {
	count := uint32(len(a.Frame.Indices))
	eye := a.Camera.GetPosition()

	stop := a.Profiler.Measure("Sort")
	a.Renderer.SortByDistance(eye, a.Frame.PositionAndRotation, count, 4, a.Frame.Indices)
	stop()

	stop = a.Profiler.Measure("Upload")
	a.Pool.Clear()
	res, err := a.Pool.AllocBillboard(a.Frame)
	stop()
	if err != nil {
		a.Logger.Errorf("particle upload: %v", err)
		return
	}

	group, err := a.resourceGroup(res)
	if err != nil {
		a.Logger.Errorf("particle bind group: %v", err)
		return
	}
	pipeline, err := a.pipelineFor(a.Variation)
	if err != nil {
		a.Logger.Errorf("%v", err)
		return
	}

	aspect := float32(a.Config.Width) / float32(a.Config.Height)
	viewProj := a.Camera.GetProjectionMatrix(aspect).Mul4(a.Camera.GetViewMatrix())
	if err := a.Queue.WriteBuffer(a.CameraBuf, 0, gpu.CameraParams{ViewProj: viewProj, ViewOrigin: eye}.Encode()); err != nil {
		a.Logger.Errorf("camera upload: %v", err)
		return
	}
	if err := a.Queue.WriteBuffer(a.ParamsBuf, 0, a.particleParams(res.TexSize).Encode()); err != nil {
		a.Logger.Errorf("particle params upload: %v", err)
		return
	}

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Logger.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Logger.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	stop = a.Profiler.Measure("Draw")
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.02, G: 0.02, B: 0.04, A: 1},
		}},
	})
	rPass.SetPipeline(pipeline)
	rPass.SetBindGroup(0, a.frameGroup, nil)
	rPass.SetBindGroup(1, group, nil)
	rPass.SetBindGroup(2, a.spriteGroup, nil)
	a.Renderer.DrawBillboards(gpu.NewWgpuRenderAPI(rPass), count)
	err = rPass.End()
	stop()
	if err != nil {
		a.Logger.Errorf("particle pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Logger.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	stats := a.Pool.Stats()
	a.Profiler.SetCount("Particles", int(count))
	a.Profiler.SetCount("BillboardSets", countSets(stats.Billboard))
	a.Profiler.SetCount("Pipelines", len(a.pipelines))
}

func countSets(buckets []gpu.BucketStats) int {
	n := 0
	for _, b := range buckets {
		n += b.Sets
	}
	return n
}

func (a *App) Release() {
	for _, bg := range a.resourceGroups {
		bg.Release()
	}
	clear(a.resourceGroups)
	for _, p := range a.pipelines {
		p.Release()
	}
	clear(a.pipelines)

	if a.Pool != nil {
		a.Pool.Release()
	}
	if a.Renderer != nil {
		a.Renderer.Release()
	}
	if a.Sprite != nil {
		a.Sprite.Release()
	}
	for _, bg := range []*wgpu.BindGroup{a.frameGroup, a.spriteGroup} {
		if bg != nil {
			bg.Release()
		}
	}
	if a.pipelineLayout != nil {
		a.pipelineLayout.Release()
	}
	for _, l := range []*wgpu.BindGroupLayout{a.frameLayout, a.resourceLayout, a.spriteLayout} {
		if l != nil {
			l.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{a.CameraBuf, a.ParamsBuf} {
		if b != nil {
			b.Release()
		}
	}
	if a.Sampler != nil {
		a.Sampler.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
