package renderer

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

/**
 * @brief The GPU device the render layer records into. Every call is made
 * from the frame thread.
 */
type Device interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error

	CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error)
	DestroyImage(image metadata.ImageHandle)
	/** @brief Creates a single-layer 2D view of image usable as an attachment. */
	CreateAttachmentView(image metadata.ImageHandle, layer int) (metadata.ViewHandle, error)
	DestroyView(view metadata.ViewHandle)

	CreateBuffer(desc metadata.BufferDesc) (metadata.BufferHandle, error)
	UpdateBuffer(buffer metadata.BufferHandle, data []byte) error
	DestroyBuffer(buffer metadata.BufferHandle)

	CreatePipeline(desc metadata.PipelineDesc) (metadata.PipelineHandle, error)
	DestroyPipeline(pipeline metadata.PipelineHandle)

	BeginPass(info metadata.PassBeginInfo)
	ApplyPipeline(pipeline metadata.PipelineHandle)
	ApplyViewport(viewport metadata.Viewport)
	ApplyBindings(bindings metadata.Bindings)
	/** @brief Writes data at byte offset slot*UNIFORM_SLOT_SIZE of the stage's uniform block. */
	ApplyUniforms(stage metadata.ShaderStage, slot int, data []byte)
	Draw(baseElement, count, instances int)
	EndPass()

	/** @brief A 1x1 white image bound wherever a material image is missing. */
	DefaultImage() metadata.ImageHandle
	/** @brief A 1x1 six-layer cube image bound wherever a cube is missing. */
	DefaultCubeImage() metadata.ImageHandle
}
