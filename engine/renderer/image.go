package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief An image owned by exactly one holder. Release destroys the GPU
 * object once; later calls do nothing.
 */
type OwnedImage struct {
	device Device
	handle metadata.ImageHandle
	Desc   metadata.ImageDesc
}

func NewOwnedImage(device Device, desc metadata.ImageDesc) (*OwnedImage, error) {
	handle, err := device.CreateImage(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create image `%s`: %w", desc.Label, err)
	}
	return &OwnedImage{device: device, handle: handle, Desc: desc}, nil
}

func (o *OwnedImage) Handle() metadata.ImageHandle {
	if o == nil {
		return 0
	}
	return o.handle
}

func (o *OwnedImage) Released() bool {
	return o == nil || !o.handle.Valid()
}

func (o *OwnedImage) Release() {
	if o.Released() {
		return
	}
	o.device.DestroyImage(o.handle)
	o.handle = 0
}

/** @brief An attachment view owned by exactly one holder. */
type OwnedView struct {
	device Device
	handle metadata.ViewHandle
	Image  metadata.ImageHandle
	Layer  int
}

func NewOwnedView(device Device, image *OwnedImage, layer int) (*OwnedView, error) {
	handle, err := device.CreateAttachmentView(image.Handle(), layer)
	if err != nil {
		return nil, fmt.Errorf("failed to create view of `%s` layer %d: %w", image.Desc.Label, layer, err)
	}
	return &OwnedView{device: device, handle: handle, Image: image.Handle(), Layer: layer}, nil
}

func (o *OwnedView) Handle() metadata.ViewHandle {
	if o == nil {
		return 0
	}
	return o.handle
}

func (o *OwnedView) Release() {
	if o == nil || !o.handle.Valid() {
		return
	}
	o.device.DestroyView(o.handle)
	o.handle = 0
}

/** @brief A buffer owned by exactly one holder. */
type OwnedBuffer struct {
	device Device
	handle metadata.BufferHandle
	Desc   metadata.BufferDesc
}

func NewOwnedBuffer(device Device, desc metadata.BufferDesc) (*OwnedBuffer, error) {
	handle, err := device.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer `%s`: %w", desc.Label, err)
	}
	return &OwnedBuffer{device: device, handle: handle, Desc: desc}, nil
}

func (o *OwnedBuffer) Handle() metadata.BufferHandle {
	if o == nil {
		return 0
	}
	return o.handle
}

func (o *OwnedBuffer) Update(data []byte) error {
	return o.device.UpdateBuffer(o.handle, data)
}

func (o *OwnedBuffer) Release() {
	if o == nil || !o.handle.Valid() {
		return
	}
	o.device.DestroyBuffer(o.handle)
	o.handle = 0
}
