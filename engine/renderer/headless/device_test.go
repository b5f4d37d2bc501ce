package headless

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestDefaultImages(t *testing.T) {
	d := New()
	if err := d.Initialize("test", 64, 64); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	desc, ok := d.ImageDesc(d.DefaultImage())
	if !ok || desc.Width != 1 || desc.Layers != 1 {
		t.Fatalf("default image = %+v, %v", desc, ok)
	}
	cube, ok := d.ImageDesc(d.DefaultCubeImage())
	if !ok || !cube.Cube || cube.Layers != 6 {
		t.Fatalf("default cube image = %+v, %v", cube, ok)
	}
	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if d.LiveImages() != 0 {
		t.Errorf("%d images alive after shutdown", d.LiveImages())
	}
}

func TestImageAndViewLifetime(t *testing.T) {
	d := New()
	img, err := d.CreateImage(metadata.ImageDesc{Label: "cube", Width: 8, Height: 8, Format: metadata.PixelFormatRGBA32F, Layers: 6, Cube: true})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	for layer := 0; layer < 6; layer++ {
		v, err := d.CreateAttachmentView(img, layer)
		if err != nil {
			t.Fatalf("CreateAttachmentView(%d): %v", layer, err)
		}
		if gotImg, gotLayer, ok := d.ViewTarget(v); !ok || gotImg != img || gotLayer != layer {
			t.Errorf("view %d targets (%d, %d)", v, gotImg, gotLayer)
		}
	}
	if _, err := d.CreateAttachmentView(img, 6); err == nil {
		t.Error("expected an error for a layer past the end")
	}
	if _, err := d.CreateAttachmentView(999, 0); !errors.Is(err, core.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := d.CreateImage(metadata.ImageDesc{Label: "bad", Width: 8, Height: 8, Layers: 2, Cube: true}); err == nil {
		t.Error("expected an error for a cube with two layers")
	}
}

func TestFailNextImage(t *testing.T) {
	d := New()
	boom := errors.New("out of memory")
	d.FailNextImage = boom
	if _, err := d.CreateImage(metadata.ImageDesc{Width: 1, Height: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := d.CreateImage(metadata.ImageDesc{Width: 1, Height: 1}); err != nil {
		t.Fatalf("second CreateImage: %v", err)
	}
}

func TestBufferUpdate(t *testing.T) {
	d := New()
	b, err := d.CreateBuffer(metadata.BufferDesc{Label: "probes", Usage: metadata.BufferUsageStorage, Size: 8, Data: []byte{1, 2}})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := d.UpdateBuffer(b, []byte{9, 9, 9}); err != nil {
		t.Fatalf("UpdateBuffer: %v", err)
	}
	got, _ := d.BufferContents(b)
	want := []byte{9, 9, 9, 0, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("contents = %v, want %v", got, want)
		}
	}
	if err := d.UpdateBuffer(b, make([]byte, 9)); err == nil {
		t.Error("expected an error for an oversized update")
	}
}

func TestDrawOutsidePassIsFatal(t *testing.T) {
	prev := core.SetFatalHandler(func(string) {})
	defer core.SetFatalHandler(prev)

	d := New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected draw outside a pass to abort")
		}
	}()
	d.Draw(0, 3, 1)
}

func TestPassRecording(t *testing.T) {
	d := New()
	d.BeginPass(metadata.PassBeginInfo{Name: "present", Swapchain: true})
	d.ApplyViewport(metadata.Viewport{Width: 4, Height: 4})
	d.Draw(0, 6, 1)
	d.EndPass()

	kinds := []CommandKind{CmdBeginPass, CmdApplyViewport, CmdDraw, CmdEndPass}
	if len(d.Commands) != len(kinds) {
		t.Fatalf("recorded %d commands, want %d", len(d.Commands), len(kinds))
	}
	for i, k := range kinds {
		if d.Commands[i].Kind != k {
			t.Errorf("command %d = %s, want %s", i, d.Commands[i].Kind, k)
		}
	}
	if d.Count(CmdDraw) != 1 || len(d.Filter(CmdBeginPass, CmdEndPass)) != 2 {
		t.Error("Count/Filter disagree with the recorded log")
	}
}
