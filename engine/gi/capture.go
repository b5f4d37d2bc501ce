package gi

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/culling"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
)

const (
	CAPTURE_FOV_DEGREES float32 = 90.0
	CAPTURE_NEAR        float32 = 0.01
	CAPTURE_FAR         float32 = 10000.0
	CAPTURE_TARGET_DIST float32 = 10.0
)

var (
	// Face order +X, -X, +Y, -Y, -Z, +Z.
	faceDirections = [metadata.CUBE_FACE_COUNT]math.Vec3{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: -1}, {Z: 1},
	}
	faceUps = [metadata.CUBE_FACE_COUNT]math.Vec3{
		{Y: 1}, {Y: 1}, {Z: 1}, {Z: -1}, {Y: 1}, {Y: 1},
	}
)

/**
 * @brief The collaborators a capture reads from during one frame.
 */
type Context struct {
	Device    renderer.Device
	Pipelines *renderer.PipelineCache
	World     *scene.World
}

type CaptureDesc struct {
	CubemapSize    int
	AtlasTotalSize int
	AtlasEntrySize int
}

/**
 * @brief Renders the scene around a point into a cube, lights it, and
 * projects the result into one tile of the octahedral atlas.
 */
type LightingCapture struct {
	desc        CaptureDesc
	projection  math.Mat4
	faceViews   [metadata.CUBE_FACE_COUNT]math.Mat4
	geometry    *renderer.RenderPass
	lighting    *renderer.RenderPass
	radialDepth *renderer.RenderPass
	cubeToOct   *renderer.RenderPass
}

func NewLightingCapture(ctx *Context, desc CaptureDesc) (*LightingCapture, error) {
	size := uint32(desc.CubemapSize)
	total := uint32(desc.AtlasTotalSize)

	geometryPipeline := GeometryPipelineDesc()
	gbuffer := make([]metadata.RenderPassOutputDesc, GBUFFER_COUNT)
	for i := range gbuffer {
		gbuffer[i] = metadata.RenderPassOutputDesc{
			Format: GBUFFER_FORMAT,
			Load:   metadata.LoadActionClear,
			Store:  metadata.StoreActionStore,
		}
	}
	geometry := renderer.NewRenderPass(ctx.Device, ctx.Pipelines, metadata.RenderPassDesc{
		Name:          "gi-geometry",
		InitialWidth:  size,
		InitialHeight: size,
		Topology:      metadata.Multi{Count: metadata.CUBE_FACE_COUNT},
		Pipeline:      &geometryPipeline,
		CullMode:      geometryPipeline.CullMode,
		ColorOutputs:  gbuffer,
		DepthOutput: &metadata.RenderPassOutputDesc{
			Format: CAPTURE_DEPTH_FORMAT,
			Load:   metadata.LoadActionClear,
			Store:  metadata.StoreActionStore,
			Clear:  metadata.ClearValue{Depth: 1.0},
		},
	})

	lightingPipeline := LightingPipelineDesc()
	lighting := renderer.NewRenderPass(ctx.Device, ctx.Pipelines, metadata.RenderPassDesc{
		Name:          "gi-lighting",
		InitialWidth:  size,
		InitialHeight: size,
		Topology:      metadata.Cubemap{},
		Pipeline:      &lightingPipeline,
		ColorOutputs: []metadata.RenderPassOutputDesc{{
			Format: LIGHTING_FORMAT,
			Load:   metadata.LoadActionClear,
			Store:  metadata.StoreActionStore,
		}},
	})

	radialPipeline := RadialDepthPipelineDesc()
	radialDepth := renderer.NewRenderPass(ctx.Device, ctx.Pipelines, metadata.RenderPassDesc{
		Name:          "gi-radial-depth",
		InitialWidth:  size,
		InitialHeight: size,
		Topology:      metadata.Cubemap{},
		Pipeline:      &radialPipeline,
		ColorOutputs: []metadata.RenderPassOutputDesc{{
			Format: RADIAL_DEPTH_FORMAT,
			Load:   metadata.LoadActionClear,
			Store:  metadata.StoreActionStore,
			Clear:  metadata.ClearValue{Color: math.NewVec4(CAPTURE_FAR, 0, 0, 0)},
		}},
	})

	octPipeline := CubeToOctPipelineDesc()
	cubeToOct := renderer.NewRenderPass(ctx.Device, ctx.Pipelines, metadata.RenderPassDesc{
		Name:          "gi-cube-to-oct",
		InitialWidth:  total,
		InitialHeight: total,
		Topology:      metadata.Single{},
		Pipeline:      &octPipeline,
		CullMode:      metadata.FaceCullModeNone,
		ColorOutputs: []metadata.RenderPassOutputDesc{
			{Format: OCT_LIGHTING_FORMAT, Load: metadata.LoadActionLoad, Store: metadata.StoreActionStore},
			{Format: OCT_DEPTH_FORMAT, Load: metadata.LoadActionLoad, Store: metadata.StoreActionStore},
		},
	})

	c := &LightingCapture{
		desc:        desc,
		projection:  math.NewMat4Perspective(math.DegToRad(CAPTURE_FOV_DEGREES), 1.0, CAPTURE_NEAR, CAPTURE_FAR),
		geometry:    geometry,
		lighting:    lighting,
		radialDepth: radialDepth,
		cubeToOct:   cubeToOct,
	}
	for _, rp := range c.passes() {
		d := rp.Desc()
		if err := rp.Resize(d.InitialWidth, d.InitialHeight); err != nil {
			c.Release()
			return nil, err
		}
	}
	return c, nil
}

func (c *LightingCapture) passes() []*renderer.RenderPass {
	return []*renderer.RenderPass{c.geometry, c.lighting, c.radialDepth, c.cubeToOct}
}

// FaceView returns the view matrix of a cube face looking out from point.
func FaceView(point math.Vec3, face int) math.Mat4 {
	target := point.Add(faceDirections[face].MulScalar(CAPTURE_TARGET_DIST))
	return math.NewMat4LookAt(point, target, faceUps[face])
}

/**
 * @brief Captures the lighting around point into atlas tile atlasSlot.
 */
func (c *LightingCapture) Render(ctx *Context, point math.Vec3, atlasSlot int) {
	device := ctx.Device
	world := ctx.World

	for face := range c.faceViews {
		c.faceViews[face] = FaceView(point, face)
	}

	c.geometry.Execute(func(face int) {
		view := c.faceViews[face]
		viewProj := view.Mul(c.projection)

		device.ApplyUniforms(metadata.ShaderStageVertex, 0, mat4Bytes(view, c.projection))

		visible := culling.Cull(world.Objects.Objects(), viewProj)
		for _, id := range visible.SortedIDs() {
			obj := visible.Objects[id]
			mesh := obj.Mesh
			materialIndex := mesh.MaterialIndex()
			images := world.Materials.Images(materialIndex, world.Images)

			device.ApplyUniforms(metadata.ShaderStageVertex, GEOMETRY_MODEL_SLOT, mat4Bytes(obj.Transform.World()))
			device.ApplyUniforms(metadata.ShaderStageFragment, 0, metadata.Int32Bytes(max(materialIndex, 0), 0, 0, 0))
			device.ApplyBindings(metadata.Bindings{
				VertexBuffer: mesh.VertexBuffer,
				IndexBuffer:  mesh.IndexBuffer,
				Images:       images[:],
				Buffers:      []metadata.BufferHandle{world.Materials.Buffer()},
			})
			device.Draw(0, mesh.IndexCount, 1)
		}
	})

	c.lighting.Execute(func(face int) {
		device.ApplyUniforms(metadata.ShaderStageFragment, 0, metadata.Float32Bytes(
			point.X, point.Y, point.Z, 0,
			// ssao and gi disabled
			0, 0, 0, 0,
		))

		pool := c.geometry.Pool()
		lights := world.Lights.Handles()
		device.ApplyBindings(metadata.Bindings{
			Images: []metadata.ImageHandle{
				pool.ColorImage(GBUFFER_ALBEDO, face),
				pool.ColorImage(GBUFFER_POSITION, face),
				pool.ColorImage(GBUFFER_NORMAL, face),
				pool.ColorImage(GBUFFER_MATERIAL, face),
				world.Images.Default(),
			},
			Buffers: lights[:],
		})
		device.Draw(0, 6, 1)
	})

	c.radialDepth.Execute(func(face int) {
		inverse := c.faceViews[face].Mul(c.projection).Inverse()
		uniforms := append(mat4Bytes(inverse), metadata.Float32Bytes(point.X, point.Y, point.Z, CAPTURE_FAR)...)
		device.ApplyUniforms(metadata.ShaderStageFragment, 0, uniforms)
		device.ApplyBindings(metadata.Bindings{
			Images: []metadata.ImageHandle{c.geometry.Pool().DepthImage(face)},
		})
		device.Draw(0, 6, 1)
	})

	c.cubeToOct.Execute(func(int) {
		device.ApplyViewport(AtlasViewport(atlasSlot, c.desc.AtlasTotalSize, c.desc.AtlasEntrySize))
		// entry size, compute irradiance, importance sampling
		device.ApplyUniforms(metadata.ShaderStageFragment, 0, metadata.Int32Bytes(int32(c.desc.AtlasEntrySize), 1, 1, 0))
		device.ApplyBindings(metadata.Bindings{
			Images: []metadata.ImageHandle{
				c.lighting.Pool().ColorImage(0, 0),
				c.radialDepth.Pool().ColorImage(0, 0),
			},
		})
		device.Draw(0, 6, 1)
	})
}

func mat4Bytes(matrices ...math.Mat4) []byte {
	out := make([]byte, 0, len(matrices)*MAT4_SIZE)
	for _, m := range matrices {
		out = append(out, metadata.Float32Bytes(m.Data[:]...)...)
	}
	return out
}

// OctahedralLightingImage is the atlas of irradiance tiles.
func (c *LightingCapture) OctahedralLightingImage() metadata.ImageHandle {
	return c.cubeToOct.Pool().ColorImage(OCT_LIGHTING_OUTPUT, 0)
}

// OctahedralDepthImage is the atlas of distance tiles.
func (c *LightingCapture) OctahedralDepthImage() metadata.ImageHandle {
	return c.cubeToOct.Pool().ColorImage(OCT_DEPTH_OUTPUT, 0)
}

func (c *LightingCapture) Desc() CaptureDesc { return c.desc }

func (c *LightingCapture) Release() {
	for _, rp := range c.passes() {
		rp.Release()
	}
}
