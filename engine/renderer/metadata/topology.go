package metadata

import "fmt"

// CUBE_FACE_COUNT is the number of layers of a cube image.
const CUBE_FACE_COUNT int = 6

/**
 * @brief Identifies the image and layer an attachment view of one sub-pass
 * points at. Image indexes the images allocated for a single output.
 */
type AttachmentRef struct {
	Image int
	Layer int
}

/**
 * @brief The shape of a render pass: how many sub-passes it runs, how many
 * images back each output and which image layer every sub-pass renders into.
 * The set of implementations is closed.
 */
type Topology interface {
	fmt.Stringer
	/** @brief The number of times Execute begins a GPU pass. */
	SubpassCount() int
	/** @brief The number of images allocated per output. Zero for the swapchain. */
	ImagesPerOutput() int
	/** @brief The number of layers of each allocated image. */
	ImageLayers() int
	/** @brief One attachment reference per sub-pass, in sub-pass order. */
	AttachmentRefs() []AttachmentRef
	/** @brief Reports whether sub-passes render to the presentation surface. */
	Presents() bool

	sealed()
}

// Single renders once into one image per output.
type Single struct{}

// Multi renders Count times, each time into its own image per output.
type Multi struct {
	Count int
}

// Cubemap renders six times into the faces of one cube image per output.
type Cubemap struct{}

// Swapchain renders once into the presentation surface.
type Swapchain struct{}

func (Single) SubpassCount() int    { return 1 }
func (Single) ImagesPerOutput() int { return 1 }
func (Single) ImageLayers() int     { return 1 }
func (Single) Presents() bool       { return false }
func (Single) String() string       { return "single" }
func (Single) sealed()              {}

func (Single) AttachmentRefs() []AttachmentRef {
	return []AttachmentRef{{Image: 0, Layer: 0}}
}

func (m Multi) SubpassCount() int    { return m.Count }
func (m Multi) ImagesPerOutput() int { return m.Count }
func (Multi) ImageLayers() int       { return 1 }
func (Multi) Presents() bool         { return false }
func (m Multi) String() string       { return fmt.Sprintf("multi(%d)", m.Count) }
func (Multi) sealed()                {}

func (m Multi) AttachmentRefs() []AttachmentRef {
	refs := make([]AttachmentRef, m.Count)
	for i := range refs {
		refs[i] = AttachmentRef{Image: i, Layer: 0}
	}
	return refs
}

func (Cubemap) SubpassCount() int    { return CUBE_FACE_COUNT }
func (Cubemap) ImagesPerOutput() int { return 1 }
func (Cubemap) ImageLayers() int     { return CUBE_FACE_COUNT }
func (Cubemap) Presents() bool       { return false }
func (Cubemap) String() string       { return "cubemap" }
func (Cubemap) sealed()              {}

func (Cubemap) AttachmentRefs() []AttachmentRef {
	refs := make([]AttachmentRef, CUBE_FACE_COUNT)
	for i := range refs {
		refs[i] = AttachmentRef{Image: 0, Layer: i}
	}
	return refs
}

func (Swapchain) SubpassCount() int               { return 1 }
func (Swapchain) ImagesPerOutput() int            { return 0 }
func (Swapchain) ImageLayers() int                { return 1 }
func (Swapchain) Presents() bool                  { return true }
func (Swapchain) String() string                  { return "swapchain" }
func (Swapchain) AttachmentRefs() []AttachmentRef { return nil }
func (Swapchain) sealed()                         {}
