package engine

/**
 * @brief The application hooks the engine drives. Every hook receives the
 * engine context; nil hooks are skipped.
 */
type Game struct {
	Name  string
	State interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Initialize runs once the device and the scene world exist, before the GI scene is built.
type Initialize func(ctx *Context) error

// Update runs once per frame before rendering.
type Update func(ctx *Context, deltaTime float64) error

// Render records extra passes inside the frame, after the probe bake.
type Render func(ctx *Context, deltaTime float64) error

type OnResize func(ctx *Context, width uint32, height uint32) error

type Shutdown func(ctx *Context) error
