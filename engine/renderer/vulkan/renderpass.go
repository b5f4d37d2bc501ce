package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief One attachment of a render pass as Vulkan sees it. */
type RenderpassAttachment struct {
	Format vk.Format
	Load   metadata.LoadAction
	Store  metadata.StoreAction
}

/**
 * @brief Everything that decides the shape of a VkRenderPass. Clear values
 * are supplied when the pass begins.
 */
type RenderpassConfig struct {
	Colors []RenderpassAttachment
	Depth  *RenderpassAttachment
	/** @brief The color attachment is a swapchain image. */
	Present bool
}

// Key identifies configs that can share one VkRenderPass.
func (c RenderpassConfig) Key() string {
	var b strings.Builder
	for _, a := range c.Colors {
		fmt.Fprintf(&b, "c%d.%d.%d;", a.Format, a.Load, a.Store)
	}
	if c.Depth != nil {
		fmt.Fprintf(&b, "d%d.%d.%d;", c.Depth.Format, c.Depth.Load, c.Depth.Store)
	}
	if c.Present {
		b.WriteString("present")
	}
	return b.String()
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Config RenderpassConfig
}

func loadOp(action metadata.LoadAction) vk.AttachmentLoadOp {
	switch action {
	case metadata.LoadActionLoad:
		return vk.AttachmentLoadOpLoad
	case metadata.LoadActionDontCare:
		return vk.AttachmentLoadOpDontCare
	default:
		return vk.AttachmentLoadOpClear
	}
}

func storeOp(action metadata.StoreAction) vk.AttachmentStoreOp {
	if action == metadata.StoreActionDiscard {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

/**
 * @brief Creates a single-subpass render pass. Offscreen attachments start
 * and end in SHADER_READ_ONLY_OPTIMAL so the next pass can sample them;
 * swapchain attachments end in PRESENT_SRC.
 */
func RenderpassCreate(context *VulkanContext, config RenderpassConfig) (*VulkanRenderpass, error) {
	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(config.Colors)+1)
	colorReferences := make([]vk.AttachmentReference, 0, len(config.Colors))

	for i, color := range config.Colors {
		initialLayout := vk.ImageLayoutUndefined
		finalLayout := vk.ImageLayoutShaderReadOnlyOptimal
		if config.Present {
			finalLayout = vk.ImageLayoutPresentSrc
		} else if color.Load == metadata.LoadActionLoad {
			initialLayout = vk.ImageLayoutShaderReadOnlyOptimal
		}
		load := loadOp(color.Load)
		if config.Present && load == vk.AttachmentLoadOpLoad {
			// Swapchain images have no defined contents at acquire.
			load = vk.AttachmentLoadOpDontCare
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         color.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         load,
			StoreOp:        storeOp(color.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    finalLayout,
		})
		colorReferences = append(colorReferences, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorReferences)),
		PColorAttachments:    colorReferences,
	}

	if config.Depth != nil {
		initialLayout := vk.ImageLayoutUndefined
		finalLayout := vk.ImageLayoutShaderReadOnlyOptimal
		load := loadOp(config.Depth.Load)
		if config.Present {
			// The swapchain depth buffer is never sampled and never kept.
			finalLayout = vk.ImageLayoutDepthStencilAttachmentOptimal
			if load == vk.AttachmentLoadOpLoad {
				load = vk.AttachmentLoadOpClear
			}
		} else if config.Depth.Load == metadata.LoadActionLoad {
			initialLayout = vk.ImageLayoutShaderReadOnlyOptimal
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         config.Depth.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         load,
			StoreOp:        storeOp(config.Depth.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    finalLayout,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	attachmentStages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
		vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	attachmentAccess := vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
		vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	shaderStage := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	shaderRead := vk.AccessFlags(vk.AccessShaderReadBit)

	dependencies := []vk.SubpassDependency{
		// Earlier passes may still sample what this pass overwrites.
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  attachmentStages | shaderStage,
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit|vk.AccessDepthStencilAttachmentWriteBit) | shaderRead,
			DstStageMask:  attachmentStages,
			DstAccessMask: attachmentAccess,
		},
		// Later passes sample what this pass wrote.
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  attachmentStages,
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstStageMask:  shaderStage,
			DstAccessMask: shaderRead,
		},
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var handle vk.RenderPass
	if err := vkCheck(vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{Handle: handle, Config: config}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// RenderpassBegin begins the pass over the whole framebuffer. clears holds
// one value per color attachment followed by the depth value, if any.
func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, clears []metadata.ClearValue) {
	clearValues := make([]vk.ClearValue, len(clears))
	for i, c := range clears {
		if i < len(vr.Config.Colors) {
			clearValues[i].SetColor([]float32{c.Color.X, c.Color.Y, c.Color.Z, c.Color.W})
		} else {
			clearValues[i].SetDepthStencil(c.Depth, c.Stencil)
		}
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: framebuffer.Width, Height: framebuffer.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
