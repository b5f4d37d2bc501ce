package metadata

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000004
)

// UNIFORM_SLOT_SIZE is the byte stride between uniform slots of one stage.
const UNIFORM_SLOT_SIZE = 64

/** @brief The pipelines the renderer knows how to build. */
type PipelineKind int

const (
	PipelineKindUnknown PipelineKind = iota
	/** @brief Writes albedo, position, normal and material of a cube face. */
	PipelineKindGIGeometry
	/** @brief Shades one cube face from its gbuffer. */
	PipelineKindGILighting
	/** @brief Converts device depth into distance from the capture point. */
	PipelineKindGIRadialDepth
	/** @brief Projects the lighting and depth cubes into one atlas tile. */
	PipelineKindGICubeToOct
	/** @brief Blits the octahedral atlas to the presentation surface. */
	PipelineKindAtlasPreview
)

var pipelineKindNames = map[PipelineKind]string{
	PipelineKindUnknown:       "unknown",
	PipelineKindGIGeometry:    "gi_geometry",
	PipelineKindGILighting:    "gi_lighting",
	PipelineKindGIRadialDepth: "gi_radial_depth",
	PipelineKindGICubeToOct:   "gi_cube_to_oct",
	PipelineKindAtlasPreview:  "atlas_preview",
}

func (k PipelineKind) String() string {
	if s, ok := pipelineKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// PipelineKinds lists every buildable kind in a stable order.
func PipelineKinds() []PipelineKind {
	return []PipelineKind{
		PipelineKindGIGeometry,
		PipelineKindGILighting,
		PipelineKindGIRadialDepth,
		PipelineKindGICubeToOct,
		PipelineKindAtlasPreview,
	}
}

/** @brief Vertex attribute formats. */
type VertexFormat int

const (
	VertexFormatFloat2 VertexFormat = iota
	VertexFormatFloat3
	VertexFormatFloat4
)

type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

/**
 * @brief Everything needed to build a graphics pipeline. Shader names the
 * embedded shader module; the color and depth formats must match the pass
 * the pipeline is used in.
 */
type PipelineDesc struct {
	Kind   PipelineKind
	Label  string
	Shader string
	/** @brief The vertex stride in bytes. Zero for pipelines without vertex input. */
	VertexStride     uint32
	VertexAttributes []VertexAttribute
	IndexedDraw      bool
	ColorFormats     []PixelFormat
	/** @brief PixelFormatNone when the pipeline has no depth attachment. */
	DepthFormat PixelFormat
	DepthWrite  bool
	CullMode    FaceCullMode
	/** @brief Number of sampled images the fragment stage binds. */
	ImageCount int
	/** @brief Number of storage buffers the fragment stage binds. */
	BufferCount int
	/** @brief Uniform block sizes in bytes per stage. */
	VertexUniformSize   uint32
	FragmentUniformSize uint32
}
