package gi

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SceneConfig struct {
	CubemapSize     int
	AtlasTotalSize  int
	AtlasEntrySize  int
	ProbesPerUpdate int
	/** @brief Stop baking once every probe has been captured. */
	StopAfterFullCycle bool
}

func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		CubemapSize:     256,
		AtlasTotalSize:  512,
		AtlasEntrySize:  16,
		ProbesPerUpdate: 1,
	}
}

/**
 * @brief The probe lattice and the scheduler that bakes it incrementally,
 * a few probes per frame in round-robin order.
 */
type Scene struct {
	cfg SceneConfig

	cells  []Cell
	probes []Probe

	cellsBuffer  *renderer.OwnedBuffer
	probesBuffer *renderer.OwnedBuffer
	capture      *LightingCapture

	nextProbeIndex int
	nextAtlasSlot  int32
	updating       bool

	clock   *core.Clock
	metrics *core.BakeMetrics
}

func NewScene(ctx *Context, cfg SceneConfig) (*Scene, error) {
	if cfg.CubemapSize <= 0 {
		return nil, fmt.Errorf("%w: cubemap capture size %d", core.ErrInvalidConfig, cfg.CubemapSize)
	}
	if cfg.ProbesPerUpdate <= 0 {
		return nil, fmt.Errorf("%w: probes per update %d", core.ErrInvalidConfig, cfg.ProbesPerUpdate)
	}
	if err := ValidateAtlas(cfg.AtlasTotalSize, cfg.AtlasEntrySize, PROBE_COUNT); err != nil {
		return nil, err
	}

	cells := BuildCells()
	if err := ValidateCells(cells); err != nil {
		return nil, fmt.Errorf("invalid probe lattice: %w", err)
	}

	s := &Scene{
		cfg:      cfg,
		cells:    cells,
		probes:   NewProbes(),
		updating: true,
		clock:    core.NewClock(),
		metrics:  core.NewBakeMetrics(),
	}

	var err error
	s.cellsBuffer, err = renderer.NewOwnedBuffer(ctx.Device, metadata.BufferDesc{
		Label: "gi_cells",
		Usage: metadata.BufferUsageStorage,
		Size:  uint64(CELL_COUNT * CORNERS_PER_CELL * 4),
		Data:  packCells(cells),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload gi cells: %w", err)
	}
	s.probesBuffer, err = renderer.NewOwnedBuffer(ctx.Device, metadata.BufferDesc{
		Label: "gi_probes",
		Usage: metadata.BufferUsageStorage,
		Size:  uint64(PROBE_COUNT * 4),
		Data:  packProbes(s.probes),
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to upload gi probes: %w", err)
	}

	s.capture, err = NewLightingCapture(ctx, CaptureDesc{
		CubemapSize:    cfg.CubemapSize,
		AtlasTotalSize: cfg.AtlasTotalSize,
		AtlasEntrySize: cfg.AtlasEntrySize,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to create lighting capture: %w", err)
	}

	core.LogInfo("gi scene ready: %d cells, %d probes, atlas %d/%d (%d tiles)",
		CELL_COUNT, PROBE_COUNT, cfg.AtlasTotalSize, cfg.AtlasEntrySize, AtlasSlots(cfg.AtlasTotalSize, cfg.AtlasEntrySize))
	return s, nil
}

func packCells(cells []Cell) []byte {
	values := make([]int32, 0, len(cells)*CORNERS_PER_CELL)
	for _, c := range cells {
		values = append(values, c.ProbeIndices[:]...)
	}
	return metadata.Int32Bytes(values...)
}

func packProbes(probes []Probe) []byte {
	values := make([]int32, len(probes))
	for i, p := range probes {
		values[i] = p.AtlasSlot
	}
	return metadata.Int32Bytes(values...)
}

/**
 * @brief Bakes up to ProbesPerUpdate probes. Probes without an atlas slot get
 * the next free one; the probe table is uploaded once if any slot changed.
 */
func (s *Scene) Update(ctx *Context) error {
	if !s.updating {
		return nil
	}

	assigned := false
	for i := 0; i < s.cfg.ProbesPerUpdate; i++ {
		probe := &s.probes[s.nextProbeIndex]
		if probe.AtlasSlot == UNASSIGNED_SLOT {
			probe.AtlasSlot = s.nextAtlasSlot
			s.nextAtlasSlot++
			assigned = true
		}

		s.clock.Start()
		s.capture.Render(ctx, ProbePositionFromIndex(s.nextProbeIndex), int(probe.AtlasSlot))
		s.clock.Stop()
		s.metrics.RecordCapture(s.clock.Elapsed())

		s.nextProbeIndex = (s.nextProbeIndex + 1) % PROBE_COUNT
		if s.nextProbeIndex == 0 {
			s.metrics.RecordCycle()
			core.LogDebug("gi bake cycle %d complete (avg capture %.3fms)", s.metrics.FullCycles, s.metrics.AverageMS())
			if s.cfg.StopAfterFullCycle {
				s.updating = false
				break
			}
		}
	}

	if assigned {
		if err := s.probesBuffer.Update(packProbes(s.probes)); err != nil {
			return fmt.Errorf("failed to upload gi probes: %w", err)
		}
	}
	return nil
}

// RestartBake resumes baking from the current cursor after a scene change.
func (s *Scene) RestartBake() {
	s.updating = true
}

func (s *Scene) Updating() bool { return s.updating }

// SetProbesPerUpdate changes the bake rate. Non-positive values are ignored.
func (s *Scene) SetProbesPerUpdate(n int) {
	if n > 0 {
		s.cfg.ProbesPerUpdate = n
	}
}

func (s *Scene) SetStopAfterFullCycle(stop bool) {
	s.cfg.StopAfterFullCycle = stop
}

func (s *Scene) Config() SceneConfig { return s.cfg }

// Probe returns a copy of the probe at index.
func (s *Scene) Probe(index int) Probe {
	return s.probes[index]
}

func (s *Scene) Cells() []Cell { return s.cells }

func (s *Scene) NextProbeIndex() int { return s.nextProbeIndex }

func (s *Scene) NextAtlasSlot() int32 { return s.nextAtlasSlot }

func (s *Scene) Metrics() *core.BakeMetrics { return s.metrics }

func (s *Scene) Capture() *LightingCapture { return s.capture }

func (s *Scene) ProbeBuffer() metadata.BufferHandle { return s.probesBuffer.Handle() }

func (s *Scene) CellBuffer() metadata.BufferHandle { return s.cellsBuffer.Handle() }

// OctahedralLightingView is the irradiance atlas sampled by the shading pass.
func (s *Scene) OctahedralLightingView() metadata.ImageHandle {
	return s.capture.OctahedralLightingImage()
}

// OctahedralDepthView is the distance atlas sampled by the shading pass.
func (s *Scene) OctahedralDepthView() metadata.ImageHandle {
	return s.capture.OctahedralDepthImage()
}

// ProbeWorldPosition returns where probe index is captured from.
func (s *Scene) ProbeWorldPosition(index int) math.Vec3 {
	return ProbePositionFromIndex(index)
}

func (s *Scene) Release() {
	if s.capture != nil {
		s.capture.Release()
		s.capture = nil
	}
	s.cellsBuffer.Release()
	s.probesBuffer.Release()
}
