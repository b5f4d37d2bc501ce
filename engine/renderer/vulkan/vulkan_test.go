package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, alignment, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{13, 0, 13},
	}
	for _, tt := range tests {
		if got := alignUp(tt.v, tt.alignment); got != tt.want {
			t.Fatalf("alignUp(%d, %d) = %d, want %d", tt.v, tt.alignment, got, tt.want)
		}
	}
}

func TestClampU32(t *testing.T) {
	if got := clampU32(5, 10, 20); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := clampU32(25, 10, 20); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
	if got := clampU32(15, 10, 20); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
}

func TestCStringTrimsPadding(t *testing.T) {
	raw := make([]byte, 32)
	copy(raw, "VK_LAYER_KHRONOS_validation")
	if got := cString(raw); got != "VK_LAYER_KHRONOS_validation" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestVulkanFormat(t *testing.T) {
	f, err := vulkanFormat(metadata.PixelFormatRGBA16F)
	if err != nil || f != vk.FormatR16g16b16a16Sfloat {
		t.Fatalf("unexpected format %d (%v)", f, err)
	}
	if _, err := vulkanFormat(metadata.PixelFormatNone); err == nil {
		t.Fatal("expected an error for the none format")
	}
}

func TestRenderpassConfigKey(t *testing.T) {
	a := RenderpassConfig{Colors: []RenderpassAttachment{{Format: vk.FormatR32g32b32a32Sfloat}}}
	b := RenderpassConfig{Colors: []RenderpassAttachment{{Format: vk.FormatR32g32b32a32Sfloat, Load: metadata.LoadActionLoad}}}
	c := RenderpassConfig{Colors: a.Colors, Depth: &RenderpassAttachment{Format: vk.FormatD32Sfloat}}
	p := RenderpassConfig{Colors: a.Colors, Present: true}

	keys := map[string]bool{}
	for _, cfg := range []RenderpassConfig{a, b, c, p} {
		keys[cfg.Key()] = true
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 distinct keys, got %d", len(keys))
	}
	if a.Key() != (RenderpassConfig{Colors: []RenderpassAttachment{{Format: vk.FormatR32g32b32a32Sfloat}}}).Key() {
		t.Fatal("equal configs must share a key")
	}
}

func TestDescriptorSetLayoutBindings(t *testing.T) {
	tests := []struct {
		name string
		desc metadata.PipelineDesc
		want []uint32
	}{
		{"preview", metadata.PipelineDesc{ImageCount: 1}, []uint32{2, 3}},
		{"cube to oct", metadata.PipelineDesc{FragmentUniformSize: 16, ImageCount: 2}, []uint32{1, 2, 3, 4}},
		{"geometry", metadata.PipelineDesc{VertexUniformSize: 192, FragmentUniformSize: 16, ImageCount: 4, BufferCount: 1}, []uint32{0, 1, 2, 3, 4, 5, 6, 7}},
		{"lighting", metadata.PipelineDesc{FragmentUniformSize: 64, ImageCount: 5, BufferCount: 3}, []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bindings := descriptorSetLayoutBindings(tt.desc)
			if len(bindings) != len(tt.want) {
				t.Fatalf("expected %d bindings, got %d", len(tt.want), len(bindings))
			}
			for i, b := range bindings {
				if b.Binding != tt.want[i] {
					t.Fatalf("binding %d is %d, want %d", i, b.Binding, tt.want[i])
				}
			}
		})
	}
}

func TestFlushGarbageKeepsRecentFrames(t *testing.T) {
	d := &Device{}
	var destroyed []uint64
	for frame := uint64(0); frame < 5; frame++ {
		f := frame
		d.FrameNumber = frame
		d.queueDestroy(func() { destroyed = append(destroyed, f) })
	}

	d.flushGarbage(2)
	if len(destroyed) != 3 || destroyed[2] != 2 {
		t.Fatalf("expected frames 0..2 destroyed, got %v", destroyed)
	}
	if len(d.garbage) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(d.garbage))
	}

	d.flushGarbage(^uint64(0))
	if len(destroyed) != 5 || len(d.garbage) != 0 {
		t.Fatalf("expected everything destroyed, got %v with %d pending", destroyed, len(d.garbage))
	}
}

func TestSameViews(t *testing.T) {
	if !sameViews(nil, nil) {
		t.Fatal("empty view lists must match")
	}
	if sameViews(nil, make([]vk.ImageView, 1)) {
		t.Fatal("lists of different length must not match")
	}
}

func TestDepthOutputDefaultsToFarPlane(t *testing.T) {
	if got := depthOutput(nil); got.Clear.Depth != 1 || got.Load != metadata.LoadActionClear {
		t.Fatalf("unexpected default depth output %+v", got)
	}
	custom := &metadata.RenderPassOutputDesc{Load: metadata.LoadActionLoad}
	if got := depthOutput(custom); got.Load != metadata.LoadActionLoad {
		t.Fatalf("expected the given output, got %+v", got)
	}
}

func TestShaderModuleCodeSizeInBytes(t *testing.T) {
	code := []uint32{0x07230203, 0x00010000, 0, 1, 0}
	info := shaderModuleCreateInfo(code)
	if info.CodeSize != 20 {
		t.Fatalf("expected a code size of 20 bytes, got %d", info.CodeSize)
	}
	if len(info.PCode) != len(code) || info.SType != vk.StructureTypeShaderModuleCreateInfo {
		t.Fatalf("unexpected create info %+v", info)
	}
}

func TestEndPassOutsidePassIsFatal(t *testing.T) {
	prev := core.SetFatalHandler(func(string) {})
	defer core.SetFatalHandler(prev)

	d := &Device{}
	defer func() {
		if recover() == nil {
			t.Fatal("expected end pass outside a pass to abort")
		}
		if d.activeRenderpass != nil || d.inPass {
			t.Fatal("a rejected end pass must not leave pass state behind")
		}
	}()
	d.EndPass()
}
