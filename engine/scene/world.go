package scene

import "github.com/spaghettifunk/lumen/engine/renderer"

/**
 * @brief Everything the render layer reads about the scene: objects,
 * materials, images and packed lights.
 */
type World struct {
	Objects   *Store
	Materials *MaterialRegistry
	Images    *ImageRegistry
	Lights    *LightBuffers
}

func NewWorld(device renderer.Device, lightCapacity int) (*World, error) {
	lights, err := NewLightBuffers(device, lightCapacity)
	if err != nil {
		return nil, err
	}
	return &World{
		Objects:   NewStore(),
		Materials: NewMaterialRegistry(device),
		Images:    NewImageRegistry(device),
		Lights:    lights,
	}, nil
}

// Sync uploads materials and lights that changed since the last call.
func (w *World) Sync() error {
	if err := w.Materials.Sync(); err != nil {
		return err
	}
	return w.Lights.Refresh(w.Objects)
}

func (w *World) Release() {
	w.Materials.Release()
	w.Lights.Release()
}
