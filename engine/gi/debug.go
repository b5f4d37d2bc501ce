package gi

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

var (
	previewBackground = color.RGBA{R: 16, G: 16, B: 16, A: 255}
	previewGutter     = color.RGBA{R: 64, G: 64, B: 64, A: 255}
)

/**
 * @brief Draws the atlas tile layout at one pixel per texel: unassigned tiles
 * stay dark, gutters are grey, and the interior of every assigned tile gets a
 * color derived from the probe that owns it.
 */
func AtlasLayoutImage(probes []Probe, totalSize, entrySize int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, totalSize, totalSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)

	gutter := int(ATLAS_GUTTER_SIZE)
	for index, p := range probes {
		if p.AtlasSlot == UNASSIGNED_SLOT {
			continue
		}
		vp := AtlasViewport(int(p.AtlasSlot), totalSize, entrySize)
		tile := image.Rect(int(vp.X), int(vp.Y), int(vp.X+vp.Width), int(vp.Y+vp.Height))
		draw.Draw(img, tile, image.NewUniform(previewGutter), image.Point{}, draw.Src)
		draw.Draw(img, tile.Inset(gutter), image.NewUniform(probeColor(index)), image.Point{}, draw.Src)
	}
	return img
}

func probeColor(index int) color.RGBA {
	c := ProbeCoordsFromIndex(index)
	step := 255 / (PROBE_DIMENSIONS - 1)
	return color.RGBA{
		R: uint8(c.X * step),
		G: uint8(c.Y * step),
		B: uint8(c.Z * step),
		A: 255,
	}
}

// ScalePreview enlarges img by an integer factor without filtering.
func ScalePreview(img image.Image, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteAtlasPreview writes the tile layout of the baked probes to a PNG file.
func (s *Scene) WriteAtlasPreview(path string, scale int) error {
	img := ScalePreview(AtlasLayoutImage(s.probes, s.cfg.AtlasTotalSize, s.cfg.AtlasEntrySize), scale)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create atlas preview: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode atlas preview: %w", err)
	}
	return nil
}

/**
 * @brief Presents the octahedral lighting atlas on the swapchain. Only used
 * when the backend has a window.
 */
type AtlasPreviewPass struct {
	pass *renderer.RenderPass
}

// NewAtlasPreviewPass clears the surface to clearColor before drawing the atlas.
func NewAtlasPreviewPass(ctx *Context, width, height uint32, clearColor math.Vec4) (*AtlasPreviewPass, error) {
	pipeline := AtlasPreviewPipelineDesc()
	pass := renderer.NewRenderPass(ctx.Device, ctx.Pipelines, metadata.RenderPassDesc{
		Name:          "atlas-preview",
		InitialWidth:  width,
		InitialHeight: height,
		Topology:      metadata.Swapchain{},
		Pipeline:      &pipeline,
		ColorOutputs: []metadata.RenderPassOutputDesc{{
			Format: metadata.PixelFormatBGRA8,
			Load:   metadata.LoadActionClear,
			Store:  metadata.StoreActionStore,
			Clear:  metadata.ClearValue{Color: clearColor},
		}},
		CullMode: metadata.FaceCullModeNone,
	})
	if err := pass.Resize(width, height); err != nil {
		return nil, err
	}
	return &AtlasPreviewPass{pass: pass}, nil
}

func (p *AtlasPreviewPass) Resize(width, height uint32) error {
	return p.pass.Resize(width, height)
}

func (p *AtlasPreviewPass) Draw(ctx *Context, s *Scene) {
	p.pass.Execute(func(int) {
		ctx.Device.ApplyBindings(metadata.Bindings{
			Images: []metadata.ImageHandle{s.OctahedralLightingView()},
		})
		ctx.Device.Draw(0, 6, 1)
	})
}

func (p *AtlasPreviewPass) Release() {
	p.pass.Release()
}
