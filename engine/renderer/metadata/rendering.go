package metadata

import "github.com/spaghettifunk/lumen/engine/math"

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief The pixel formats a render target or sampled image can use. */
type PixelFormat int

const (
	PixelFormatNone PixelFormat = iota
	PixelFormatRGBA8
	PixelFormatBGRA8
	PixelFormatRGBA16F
	PixelFormatRGBA32F
	PixelFormatR32F
	PixelFormatDepth32F
	PixelFormatDepth24Stencil8
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatNone:            "none",
	PixelFormatRGBA8:           "rgba8",
	PixelFormatBGRA8:           "bgra8",
	PixelFormatRGBA16F:         "rgba16f",
	PixelFormatRGBA32F:         "rgba32f",
	PixelFormatR32F:            "r32f",
	PixelFormatDepth32F:        "depth32f",
	PixelFormatDepth24Stencil8: "depth24stencil8",
}

func (f PixelFormat) String() string {
	if s, ok := pixelFormatNames[f]; ok {
		return s
	}
	return "unknown"
}

// IsDepth reports whether the format can back a depth attachment.
func (f PixelFormat) IsDepth() bool {
	return f == PixelFormatDepth32F || f == PixelFormatDepth24Stencil8
}

// BytesPerPixel is used when sizing staging uploads.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatRGBA8, PixelFormatBGRA8, PixelFormatR32F, PixelFormatDepth32F, PixelFormatDepth24Stencil8:
		return 4
	case PixelFormatRGBA16F:
		return 8
	case PixelFormatRGBA32F:
		return 16
	}
	return 0
}

/** @brief What happens to an attachment's contents when a pass begins. */
type LoadAction int

const (
	LoadActionClear LoadAction = iota
	LoadActionLoad
	LoadActionDontCare
)

/** @brief What happens to an attachment's contents when a pass ends. */
type StoreAction int

const (
	StoreActionStore StoreAction = iota
	StoreActionDiscard
)

/**
 * @brief The value an attachment is cleared to. Color attachments use Color,
 * depth attachments use Depth and Stencil.
 */
type ClearValue struct {
	Color   math.Vec4
	Depth   float32
	Stencil uint32
}

/** @brief Describes one color or depth output of a render pass. */
type RenderPassOutputDesc struct {
	Format PixelFormat
	Load   LoadAction
	Store  StoreAction
	Clear  ClearValue
}

/**
 * @brief Describes a render pass. ColorOutputs must not be empty unless the
 * topology is Swapchain, which renders to the presentation surface.
 */
type RenderPassDesc struct {
	/** @brief The Name of this renderpass. */
	Name string
	/** @brief Size used until the first explicit resize. */
	InitialWidth  uint32
	InitialHeight uint32
	/** @brief How many sub-passes run and what they render into. */
	Topology Topology
	/** @brief Optional pipeline applied at the start of every sub-pass. */
	Pipeline *PipelineDesc
	/** @brief Cull mode override recorded with the pass. */
	CullMode     FaceCullMode
	ColorOutputs []RenderPassOutputDesc
	DepthOutput  *RenderPassOutputDesc
}

/** @brief A rectangle of the current attachments, in pixels. */
type Viewport struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
}
