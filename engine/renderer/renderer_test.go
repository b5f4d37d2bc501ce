package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func expectFatal(t *testing.T, name string, fn func()) {
	t.Helper()
	var msg string
	prev := core.SetFatalHandler(func(m string) { msg = m })
	defer core.SetFatalHandler(prev)
	defer func() {
		t.Helper()
		if recover() == nil || msg == "" {
			t.Errorf("%s: expected a fatal abort", name)
		}
	}()
	fn()
}

func colorOutput(format metadata.PixelFormat) metadata.RenderPassOutputDesc {
	return metadata.RenderPassOutputDesc{Format: format, Load: metadata.LoadActionClear, Store: metadata.StoreActionStore}
}

func depthOutput() *metadata.RenderPassOutputDesc {
	return &metadata.RenderPassOutputDesc{
		Format: metadata.PixelFormatDepth32F,
		Load:   metadata.LoadActionClear,
		Store:  metadata.StoreActionDiscard,
		Clear:  metadata.ClearValue{Depth: 1},
	}
}

func TestPoolTopologies(t *testing.T) {
	tests := []struct {
		name          string
		topology      metadata.Topology
		outputs       int
		wantSets      int
		wantImages    int
		wantLayers    uint32
		sameImageEach bool
	}{
		{"single", metadata.Single{}, 2, 1, 1, 1, true},
		{"multi", metadata.Multi{Count: 6}, 4, 6, 6, 1, false},
		{"cubemap", metadata.Cubemap{}, 1, 6, 1, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := headless.New()
			desc := metadata.RenderPassDesc{Name: tt.name, Topology: tt.topology, DepthOutput: depthOutput()}
			for i := 0; i < tt.outputs; i++ {
				desc.ColorOutputs = append(desc.ColorOutputs, colorOutput(metadata.PixelFormatRGBA32F))
			}
			pool := NewRenderTargetPool(d, desc)
			if err := pool.Resize(32, 16); err != nil {
				t.Fatalf("Resize: %v", err)
			}

			sets := pool.AttachmentSets()
			if len(sets) != tt.wantSets || len(sets) != tt.topology.SubpassCount() {
				t.Fatalf("got %d attachment sets, want %d", len(sets), tt.wantSets)
			}
			for out := 0; out < tt.outputs; out++ {
				for i := 0; i < tt.wantImages; i++ {
					img := pool.ColorImage(out, i)
					desc, ok := d.ImageDesc(img)
					if !ok {
						t.Fatalf("output %d image %d missing", out, i)
					}
					if desc.Width != 32 || desc.Height != 16 || desc.Layers != tt.wantLayers {
						t.Errorf("output %d image %d = %+v", out, i, desc)
					}
				}
				if pool.ColorImage(out, tt.wantImages).Valid() {
					t.Errorf("output %d has more than %d images", out, tt.wantImages)
				}
			}
			for i, set := range sets {
				if len(set.Colors) != tt.outputs {
					t.Fatalf("set %d has %d colors", i, len(set.Colors))
				}
				img, layer, _ := d.ViewTarget(set.Colors[0])
				wantImg := pool.ColorImage(0, 0)
				wantLayer := i
				if !tt.sameImageEach {
					wantImg = pool.ColorImage(0, i)
				}
				if tt.wantLayers == 1 {
					wantLayer = 0
				}
				if img != wantImg || layer != wantLayer {
					t.Errorf("set %d color view targets (%d, %d), want (%d, %d)", i, img, layer, wantImg, wantLayer)
				}
				if !set.Depth.Valid() {
					t.Errorf("set %d has no depth view", i)
				}
			}
			if _, ok := tt.topology.(metadata.Cubemap); ok {
				desc, _ := d.ImageDesc(pool.ColorImage(0, 0))
				if !desc.Cube {
					t.Error("cubemap color image is not cube compatible")
				}
				depth, _ := d.ImageDesc(pool.DepthImage(0))
				if depth.Layers != 6 {
					t.Errorf("cubemap depth image has %d layers", depth.Layers)
				}
			}

			pool.Release()
			if d.LiveImages() != 0 || d.LiveViews() != 0 {
				t.Errorf("release left %d images and %d views", d.LiveImages(), d.LiveViews())
			}
		})
	}
}

func TestSwapchainPoolAllocatesNothing(t *testing.T) {
	d := headless.New()
	pool := NewRenderTargetPool(d, metadata.RenderPassDesc{Name: "present", Topology: metadata.Swapchain{}})
	if err := pool.Resize(100, 50); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if d.LiveImages() != 0 || len(pool.AttachmentSets()) != 0 {
		t.Fatal("swapchain pool allocated images")
	}
	if !pool.Ready() {
		t.Fatal("swapchain pool not ready after resize")
	}
}

func TestResizeReleasesBeforeCreating(t *testing.T) {
	d := headless.New()
	desc := metadata.RenderPassDesc{
		Name:         "cube",
		Topology:     metadata.Cubemap{},
		ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatR32F)},
		DepthOutput:  depthOutput(),
	}
	pool := NewRenderTargetPool(d, desc)
	if err := pool.Resize(16, 16); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	live := d.LiveImages()
	d.Reset()

	if err := pool.Resize(32, 32); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	lastDestroy, firstCreate := -1, -1
	for i, c := range d.Commands {
		switch c.Kind {
		case headless.CmdDestroyImage, headless.CmdDestroyView:
			lastDestroy = i
		case headless.CmdCreateImage, headless.CmdCreateView:
			if firstCreate < 0 {
				firstCreate = i
			}
		}
	}
	if lastDestroy < 0 || firstCreate < 0 || lastDestroy > firstCreate {
		t.Fatalf("destroy/create order wrong: last destroy %d, first create %d", lastDestroy, firstCreate)
	}
	if d.LiveImages() != live {
		t.Errorf("live images %d after resize, want %d", d.LiveImages(), live)
	}
}

func TestResizeFailureLeavesNothingBehind(t *testing.T) {
	d := headless.New()
	desc := metadata.RenderPassDesc{
		Name:     "multi",
		Topology: metadata.Multi{Count: 3},
		ColorOutputs: []metadata.RenderPassOutputDesc{
			colorOutput(metadata.PixelFormatRGBA8),
			colorOutput(metadata.PixelFormatRGBA8),
		},
	}
	pool := NewRenderTargetPool(d, desc)
	if err := pool.Resize(8, 8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	boom := errors.New("device lost")
	d.FailNextImage = boom
	if err := pool.Resize(16, 16); !errors.Is(err, boom) {
		t.Fatalf("expected device error, got %v", err)
	}
	if d.LiveImages() != 0 || d.LiveViews() != 0 {
		t.Errorf("failed resize left %d images and %d views", d.LiveImages(), d.LiveViews())
	}
	if pool.Ready() {
		t.Error("pool reports ready after a failed resize")
	}
}

func newCache(t *testing.T, d Device, descs ...metadata.PipelineDesc) *PipelineCache {
	t.Helper()
	cache := NewPipelineCache(d)
	if err := cache.Initialize(descs); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return cache
}

func TestExecuteOrder(t *testing.T) {
	d := headless.New()
	pipeline := metadata.PipelineDesc{
		Kind:         metadata.PipelineKindGIRadialDepth,
		ColorFormats: []metadata.PixelFormat{metadata.PixelFormatR32F},
	}
	cache := newCache(t, d, pipeline)
	rp := NewRenderPass(d, cache, metadata.RenderPassDesc{
		Name:         "radial",
		Topology:     metadata.Cubemap{},
		Pipeline:     &pipeline,
		ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatR32F)},
	})
	if err := rp.Resize(8, 8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	d.Reset()

	var seen []int
	rp.Execute(func(subpass int) {
		seen = append(seen, subpass)
		d.Draw(0, 3, 1)
	})

	if len(seen) != 6 {
		t.Fatalf("drawFn called %d times, want 6", len(seen))
	}
	for i, s := range seen {
		if s != i {
			t.Fatalf("sub-passes ran in order %v", seen)
		}
	}
	want := []headless.CommandKind{headless.CmdBeginPass, headless.CmdApplyPipeline, headless.CmdDraw, headless.CmdEndPass}
	if len(d.Commands) != 6*len(want) {
		t.Fatalf("recorded %d commands, want %d", len(d.Commands), 6*len(want))
	}
	sets := rp.Pool().AttachmentSets()
	for i, c := range d.Commands {
		if c.Kind != want[i%len(want)] {
			t.Fatalf("command %d = %s, want %s", i, c.Kind, want[i%len(want)])
		}
		if c.Kind == headless.CmdBeginPass {
			face := i / len(want)
			if c.Pass.Subpass != face || c.Pass.Attachments.Colors[0] != sets[face].Colors[0] {
				t.Errorf("pass %d began on the wrong attachment set", face)
			}
		}
	}
}

func TestExecuteSwapchainWithoutPipeline(t *testing.T) {
	d := headless.New()
	rp := NewRenderPass(d, NewPipelineCache(d), metadata.RenderPassDesc{Name: "present", Topology: metadata.Swapchain{}})
	if err := rp.Resize(640, 480); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	calls := 0
	rp.Execute(func(int) { calls++ })
	if calls != 1 {
		t.Fatalf("drawFn called %d times", calls)
	}
	begins := d.Filter(headless.CmdBeginPass)
	if len(begins) != 1 || !begins[0].Pass.Swapchain || begins[0].Pass.Attachments != nil {
		t.Fatalf("swapchain pass began with %+v", begins)
	}
	if d.Count(headless.CmdApplyPipeline) != 0 {
		t.Error("pipeline applied for a pass without one")
	}
}

func TestFatalPreconditions(t *testing.T) {
	d := headless.New()
	cache := NewPipelineCache(d)
	mismatched := metadata.PipelineDesc{Kind: metadata.PipelineKindGIGeometry, DepthFormat: metadata.PixelFormatDepth24Stencil8}

	expectFatal(t, "execute before resize", func() {
		rp := NewRenderPass(d, cache, metadata.RenderPassDesc{
			Name:         "early",
			Topology:     metadata.Single{},
			ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatRGBA8)},
		})
		rp.Execute(nil)
	})
	expectFatal(t, "zero outputs", func() {
		NewRenderTargetPool(d, metadata.RenderPassDesc{Name: "empty", Topology: metadata.Single{}})
	})
	expectFatal(t, "missing topology", func() {
		NewRenderTargetPool(d, metadata.RenderPassDesc{
			Name:         "none",
			ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatRGBA8)},
		})
	})
	expectFatal(t, "empty multi", func() {
		NewRenderTargetPool(d, metadata.RenderPassDesc{
			Name:         "multi",
			Topology:     metadata.Multi{},
			ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatRGBA8)},
		})
	})
	expectFatal(t, "depth mismatch", func() {
		NewRenderTargetPool(d, metadata.RenderPassDesc{
			Name:         "geometry",
			Topology:     metadata.Multi{Count: 6},
			Pipeline:     &mismatched,
			ColorOutputs: []metadata.RenderPassOutputDesc{colorOutput(metadata.PixelFormatRGBA8)},
			DepthOutput:  depthOutput(),
		})
	})
	expectFatal(t, "unknown pipeline", func() {
		cache.Get(metadata.PipelineKindGICubeToOct)
	})
}

func TestPipelineCache(t *testing.T) {
	d := headless.New()
	cache := newCache(t, d,
		metadata.PipelineDesc{Kind: metadata.PipelineKindGILighting, Label: "lighting"},
		metadata.PipelineDesc{Kind: metadata.PipelineKindGICubeToOct, Label: "oct"},
	)
	lighting := cache.Get(metadata.PipelineKindGILighting)
	oct := cache.Get(metadata.PipelineKindGICubeToOct)
	if !lighting.Valid() || !oct.Valid() || lighting == oct {
		t.Fatalf("handles %d and %d", lighting, oct)
	}
	if cache.Desc(metadata.PipelineKindGICubeToOct).Label != "oct" {
		t.Error("Desc returned the wrong description")
	}
	kinds := cache.Kinds()
	if len(kinds) != 2 || kinds[0] != metadata.PipelineKindGILighting {
		t.Errorf("Kinds() = %v", kinds)
	}

	dup := NewPipelineCache(d)
	err := dup.Initialize([]metadata.PipelineDesc{
		{Kind: metadata.PipelineKindGILighting},
		{Kind: metadata.PipelineKindGILighting},
	})
	if err == nil {
		t.Error("expected an error for a duplicated kind")
	}

	cache.Destroy()
	if d.LivePipelines() != 1 {
		t.Errorf("%d pipelines alive, want only the first of the duplicated pair", d.LivePipelines())
	}
	if cache.Has(metadata.PipelineKindGILighting) {
		t.Error("Destroy kept cached entries")
	}
}

func TestOwnedImageReleaseIsIdempotent(t *testing.T) {
	d := headless.New()
	img, err := NewOwnedImage(d, metadata.ImageDesc{Label: "x", Width: 1, Height: 1, Layers: 1})
	if err != nil {
		t.Fatalf("NewOwnedImage: %v", err)
	}
	img.Release()
	img.Release()
	if d.Count(headless.CmdDestroyImage) != 1 || !img.Released() {
		t.Fatal("image destroyed more than once")
	}
}
