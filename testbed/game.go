package testbed

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
)

const (
	CHECKER_SIZE   = 64
	CHECKER_TILE   = 8
	ROOM_HALF_SIZE = 7.0
	// Seconds between two bake progress lines.
	PROGRESS_INTERVAL = 1.0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	meshes  []*scene.Mesh
	images  []*renderer.OwnedImage
	spinner int32

	width  uint32
	height uint32

	sinceProgress float64
	cycles        uint32
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Name:  "Lumen Testbed",
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Initialize builds a small lit room inside the probe lattice.
func (g *TestGame) Initialize(ctx *engine.Context) error {
	core.LogInfo("building testbed scene...")
	state := g.state()
	device := ctx.Renderer.Device()
	world := ctx.World

	checker, err := renderer.NewOwnedImage(device, metadata.ImageDesc{
		Label:  "checker",
		Width:  CHECKER_SIZE,
		Height: CHECKER_SIZE,
		Format: metadata.PixelFormatRGBA8,
		Layers: 1,
		Pixels: checkerPixels(CHECKER_SIZE, CHECKER_TILE),
	})
	if err != nil {
		return err
	}
	state.images = append(state.images, checker)
	checkerIndex := world.Images.Add(checker.Handle())

	floorMaterial := scene.NewMaterial("floor")
	floorMaterial.BaseColorImage = checkerIndex
	floor := world.Materials.Add(floorMaterial)

	red := scene.NewMaterial("red_wall")
	red.BaseColor = math.NewVec4(0.8, 0.1, 0.1, 1)
	redWall := world.Materials.Add(red)

	green := scene.NewMaterial("green_wall")
	green.BaseColor = math.NewVec4(0.1, 0.8, 0.1, 1)
	greenWall := world.Materials.Add(green)

	white := scene.NewMaterial("white")
	white.Roughness = 0.6
	whiteBox := world.Materials.Add(white)

	glow := scene.NewMaterial("glow")
	glow.Emission = math.NewVec3(4, 3.5, 2.5)
	emissive := world.Materials.Add(glow)

	add := func(name string, data scene.MeshData, transform math.Transform, material int32) (int32, error) {
		mesh, err := scene.NewMesh(device, data, material)
		if err != nil {
			return 0, err
		}
		state.meshes = append(state.meshes, mesh)
		return world.Objects.Add(&scene.Object{Name: name, Visible: true, Transform: transform, Mesh: mesh}), nil
	}

	walls := []struct {
		name     string
		position math.Vec3
		size     math.Vec3
		material int32
	}{
		{"floor", math.NewVec3(0, -ROOM_HALF_SIZE, 0), math.NewVec3(2*ROOM_HALF_SIZE, 0.2, 2*ROOM_HALF_SIZE), floor},
		{"ceiling", math.NewVec3(0, ROOM_HALF_SIZE, 0), math.NewVec3(2*ROOM_HALF_SIZE, 0.2, 2*ROOM_HALF_SIZE), whiteBox},
		{"left_wall", math.NewVec3(-ROOM_HALF_SIZE, 0, 0), math.NewVec3(0.2, 2*ROOM_HALF_SIZE, 2*ROOM_HALF_SIZE), redWall},
		{"right_wall", math.NewVec3(ROOM_HALF_SIZE, 0, 0), math.NewVec3(0.2, 2*ROOM_HALF_SIZE, 2*ROOM_HALF_SIZE), greenWall},
		{"back_wall", math.NewVec3(0, 0, -ROOM_HALF_SIZE), math.NewVec3(2*ROOM_HALF_SIZE, 2*ROOM_HALF_SIZE, 0.2), whiteBox},
	}
	for _, w := range walls {
		data := scene.GenerateCube(w.size.X, w.size.Y, w.size.Z, w.name)
		if _, err := add(w.name, data, math.NewTransformFromPosition(w.position), w.material); err != nil {
			return err
		}
	}

	tall := math.NewTransformFromPosition(math.NewVec3(-2.5, -3.5, -2))
	tall.Rotation = math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), math.DegToRad(18), true)
	if _, err := add("tall_box", scene.GenerateCube(3, 7, 3, "tall_box"), tall, whiteBox); err != nil {
		return err
	}
	short := math.NewTransformFromPosition(math.NewVec3(2.5, -5.5, 1.5))
	if state.spinner, err = add("short_box", scene.GenerateCube(3, 3, 3, "short_box"), short, whiteBox); err != nil {
		return err
	}
	lamp := math.NewTransformFromPosition(math.NewVec3(0, ROOM_HALF_SIZE-0.3, 0))
	if _, err := add("lamp", scene.GeneratePlane(3, 3, 1, 1, 1, "lamp"), lamp, emissive); err != nil {
		return err
	}

	lights := []*scene.Object{
		{
			Name:      "ceiling_light",
			Transform: math.NewTransformFromPosition(math.NewVec3(0, ROOM_HALF_SIZE-1, 0)),
			Light:     &scene.Light{Type: scene.LightTypePoint, Color: math.NewVec3(1, 0.95, 0.85), Power: 400},
		},
		{
			Name:      "spot",
			Transform: spotTransform(),
			Light: &scene.Light{
				Type: scene.LightTypeSpot, Color: math.NewVec3(0.6, 0.7, 1), Power: 600,
				BeamAngle: math.DegToRad(40), EdgeBlend: 0.2,
			},
		},
		{
			Name:      "sun",
			Transform: math.NewTransform(),
			Light:     &scene.Light{Type: scene.LightTypeSun, Color: math.NewVec3(1, 1, 1), Power: 0.5},
		},
		{
			// Area lights are not captured by the bake; this one only checks that.
			Name:      "window",
			Transform: math.NewTransformFromPosition(math.NewVec3(0, 0, ROOM_HALF_SIZE)),
			Light:     &scene.Light{Type: scene.LightTypeArea, Color: math.NewVec3(1, 1, 1), Power: 50},
		},
	}
	for _, l := range lights {
		world.Objects.Add(l)
	}

	ctx.Events.Register(core.EVENT_CODE_BAKE_CYCLE_COMPLETE, g, g.onBakeCycle)

	core.LogInfo("testbed scene ready: %d objects, %d materials", world.Objects.Len(), world.Materials.Len())
	return nil
}

func spotTransform() math.Transform {
	t := math.NewTransformFromPosition(math.NewVec3(5, 5, 5))
	// Lights point down -Z; tilt it towards the room center.
	t.Rotation = math.NewQuatFromAxisAngle(math.NewVec3(1, 0, -1).Normalize(), math.DegToRad(-35), true)
	return t
}

func checkerPixels(size, tile int) []byte {
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(200)
			if (x/tile+y/tile)%2 == 1 {
				v = 60
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	return pixels
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	state := g.state()
	state.sinceProgress += deltaTime
	if state.sinceProgress < PROGRESS_INTERVAL || ctx.GI == nil || !ctx.GI.Updating() {
		return nil
	}
	state.sinceProgress = 0

	m := ctx.GI.Metrics()
	done := ctx.GI.NextAtlasSlot()
	core.LogDebug("bake progress: %d captures, %d probes assigned, avg %.3fms", m.Captures, done, m.AverageMS())
	return nil
}

func (g *TestGame) Render(ctx *engine.Context, deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(ctx *engine.Context, width, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown(ctx *engine.Context) error {
	state := g.state()
	ctx.Events.Unregister(core.EVENT_CODE_BAKE_CYCLE_COMPLETE, g)
	for _, m := range state.meshes {
		m.Release()
	}
	state.meshes = nil
	for _, img := range state.images {
		img.Release()
	}
	state.images = nil
	core.LogInfo("testbed shut down after %d bake cycles", state.cycles)
	return nil
}

// RotateShortBox turns the short box around Y and restarts the bake so the
// probes see the change.
func (g *TestGame) RotateShortBox(ctx *engine.Context, degrees float32) error {
	obj, ok := ctx.World.Objects.Get(g.state().spinner)
	if !ok {
		return fmt.Errorf("short box %d not in the scene", g.state().spinner)
	}
	obj.Transform.Rotation = math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), math.DegToRad(degrees), true)
	if ctx.GI != nil {
		ctx.GI.RestartBake()
	}
	return nil
}

func (g *TestGame) onBakeCycle(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	state := g.state()
	state.cycles = data.U32[0]
	core.LogInfo("testbed: bake cycle %d done, avg capture %.3fms", data.U32[0], data.F64[0])
	return false
}
