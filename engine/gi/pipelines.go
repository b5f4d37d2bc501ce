package gi

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

const (
	GBUFFER_ALBEDO   = 0
	GBUFFER_POSITION = 1
	GBUFFER_NORMAL   = 2
	GBUFFER_MATERIAL = 3
	GBUFFER_COUNT    = 4

	OCT_LIGHTING_OUTPUT = 0
	OCT_DEPTH_OUTPUT    = 1
)

const (
	GBUFFER_FORMAT        = metadata.PixelFormatRGBA32F
	CAPTURE_DEPTH_FORMAT  = metadata.PixelFormatDepth32F
	LIGHTING_FORMAT       = metadata.PixelFormatRGBA32F
	RADIAL_DEPTH_FORMAT   = metadata.PixelFormatR32F
	OCT_LIGHTING_FORMAT   = metadata.PixelFormatRGBA32F
	OCT_DEPTH_FORMAT      = metadata.PixelFormatRGBA16F
	MESH_VERTEX_STRIDE    = 8 * 4
	MAT4_SIZE             = 16 * 4
	GEOMETRY_VS_UNIFORMS  = 3 * MAT4_SIZE
	GEOMETRY_MODEL_SLOT   = 2
	GEOMETRY_FS_UNIFORMS  = 16
	LIGHTING_FS_UNIFORMS  = 32
	RADIAL_FS_UNIFORMS    = MAT4_SIZE + 16
	CUBE_TO_OCT_UNIFORMS  = 16
	LIGHTING_IMAGE_COUNT  = GBUFFER_COUNT + 1
	LIGHTING_BUFFER_COUNT = 3
)

func GeometryPipelineDesc() metadata.PipelineDesc {
	colors := make([]metadata.PixelFormat, GBUFFER_COUNT)
	for i := range colors {
		colors[i] = GBUFFER_FORMAT
	}
	return metadata.PipelineDesc{
		Kind:         metadata.PipelineKindGIGeometry,
		Label:        "gi-geometry-pipeline",
		Shader:       metadata.PipelineKindGIGeometry.String(),
		VertexStride: MESH_VERTEX_STRIDE,
		VertexAttributes: []metadata.VertexAttribute{
			{Location: 0, Offset: 0, Format: metadata.VertexFormatFloat3},
			{Location: 1, Offset: 12, Format: metadata.VertexFormatFloat3},
			{Location: 2, Offset: 24, Format: metadata.VertexFormatFloat2},
		},
		IndexedDraw:         true,
		ColorFormats:        colors,
		DepthFormat:         CAPTURE_DEPTH_FORMAT,
		DepthWrite:          true,
		CullMode:            metadata.FaceCullModeBack,
		ImageCount:          4,
		BufferCount:         1,
		VertexUniformSize:   GEOMETRY_VS_UNIFORMS,
		FragmentUniformSize: GEOMETRY_FS_UNIFORMS,
	}
}

func LightingPipelineDesc() metadata.PipelineDesc {
	return metadata.PipelineDesc{
		Kind:                metadata.PipelineKindGILighting,
		Label:               "gi-lighting-pipeline",
		Shader:              metadata.PipelineKindGILighting.String(),
		ColorFormats:        []metadata.PixelFormat{LIGHTING_FORMAT},
		DepthFormat:         metadata.PixelFormatNone,
		CullMode:            metadata.FaceCullModeNone,
		ImageCount:          LIGHTING_IMAGE_COUNT,
		BufferCount:         LIGHTING_BUFFER_COUNT,
		FragmentUniformSize: LIGHTING_FS_UNIFORMS,
	}
}

func RadialDepthPipelineDesc() metadata.PipelineDesc {
	return metadata.PipelineDesc{
		Kind:                metadata.PipelineKindGIRadialDepth,
		Label:               "gi-radial-depth-pipeline",
		Shader:              metadata.PipelineKindGIRadialDepth.String(),
		ColorFormats:        []metadata.PixelFormat{RADIAL_DEPTH_FORMAT},
		DepthFormat:         metadata.PixelFormatNone,
		CullMode:            metadata.FaceCullModeNone,
		ImageCount:          1,
		FragmentUniformSize: RADIAL_FS_UNIFORMS,
	}
}

func CubeToOctPipelineDesc() metadata.PipelineDesc {
	return metadata.PipelineDesc{
		Kind:                metadata.PipelineKindGICubeToOct,
		Label:               "cubemap-to-octahedral-pipeline",
		Shader:              metadata.PipelineKindGICubeToOct.String(),
		ColorFormats:        []metadata.PixelFormat{OCT_LIGHTING_FORMAT, OCT_DEPTH_FORMAT},
		DepthFormat:         metadata.PixelFormatNone,
		CullMode:            metadata.FaceCullModeNone,
		ImageCount:          2,
		FragmentUniformSize: CUBE_TO_OCT_UNIFORMS,
	}
}

// PipelineDescs lists every pipeline the probe capture and its preview need.
func PipelineDescs() []metadata.PipelineDesc {
	return []metadata.PipelineDesc{
		GeometryPipelineDesc(),
		LightingPipelineDesc(),
		RadialDepthPipelineDesc(),
		CubeToOctPipelineDesc(),
		AtlasPreviewPipelineDesc(),
	}
}

// AtlasPreviewPipelineDesc draws the lighting atlas onto the presentation surface.
func AtlasPreviewPipelineDesc() metadata.PipelineDesc {
	return metadata.PipelineDesc{
		Kind:         metadata.PipelineKindAtlasPreview,
		Label:        "atlas-preview-pipeline",
		Shader:       metadata.PipelineKindAtlasPreview.String(),
		ColorFormats: []metadata.PixelFormat{metadata.PixelFormatBGRA8},
		DepthFormat:  metadata.PixelFormatNone,
		CullMode:     metadata.FaceCullModeNone,
		ImageCount:   1,
	}
}
