package metadata

/** @brief Opaque GPU handles. The zero value never refers to a live object. */
type (
	ImageHandle    uint32
	ViewHandle     uint32
	BufferHandle   uint32
	PipelineHandle uint32
)

const INVALID_HANDLE uint32 = 0

func (h ImageHandle) Valid() bool    { return uint32(h) != INVALID_HANDLE }
func (h ViewHandle) Valid() bool     { return uint32(h) != INVALID_HANDLE }
func (h BufferHandle) Valid() bool   { return uint32(h) != INVALID_HANDLE }
func (h PipelineHandle) Valid() bool { return uint32(h) != INVALID_HANDLE }

/**
 * @brief Describes an image. Layers is 6 for cube images and 1 otherwise.
 */
type ImageDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format PixelFormat
	Layers uint32
	/** @brief The image can be sampled as a cube. */
	Cube bool
	/** @brief The image can be used as a color or depth attachment. */
	RenderTarget bool
	/** @brief Optional initial contents, tightly packed, layer after layer. */
	Pixels []byte
}

type BufferUsage int

const (
	/** @brief Buffer is used for vertex data. */
	BufferUsageVertex BufferUsage = iota
	/** @brief Buffer is used for index data. */
	BufferUsageIndex
	/** @brief Buffer is used for uniform data. */
	BufferUsageUniform
	/** @brief Buffer is read by shaders as a storage array. */
	BufferUsageStorage
)

type BufferDesc struct {
	Label string
	Usage BufferUsage
	Size  uint64
	/** @brief Optional initial contents. Must not exceed Size. */
	Data []byte
}

/**
 * @brief The views one sub-pass renders into. Colors are in output order.
 */
type AttachmentSet struct {
	Colors []ViewHandle
	Depth  ViewHandle
	Width  uint32
	Height uint32
}

/**
 * @brief Everything the device needs to begin a GPU pass. Attachments is nil
 * when rendering to the swapchain.
 */
type PassBeginInfo struct {
	Name         string
	Subpass      int
	Attachments  *AttachmentSet
	Swapchain    bool
	ColorOutputs []RenderPassOutputDesc
	DepthOutput  *RenderPassOutputDesc
}

/**
 * @brief Resources bound for the next draw. Images and Buffers are bound to
 * the fragment stage in slot order.
 */
type Bindings struct {
	VertexBuffer BufferHandle
	IndexBuffer  BufferHandle
	Images       []ImageHandle
	Buffers      []BufferHandle
}
