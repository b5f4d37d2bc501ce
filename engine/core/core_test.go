package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LOG_LEVEL_DEBUG},
		{"", LOG_LEVEL_DEBUG},
		{"INFO", LOG_LEVEL_INFO},
		{" warn ", LOG_LEVEL_WARN},
		{"warning", LOG_LEVEL_WARN},
		{"error", LOG_LEVEL_ERROR},
		{"fatal", LOG_LEVEL_FATAL},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseLogLevel("verbose"); !errors.Is(err, ErrUnknownLogLevel) {
		t.Errorf("expected ErrUnknownLogLevel, got %v", err)
	}
}

func TestAssertCallsFatalHandler(t *testing.T) {
	var got string
	prev := SetFatalHandler(func(msg string) { got = msg })
	defer SetFatalHandler(prev)

	Assert(true, "never")
	if got != "" {
		t.Fatalf("handler called for a true condition")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("Assert(false) did not abort the caller")
			}
		}()
		Assert(false, "bad value %d", 7)
	}()
	if got != "bad value 7" {
		t.Errorf("fatal message = %q", got)
	}
}

func TestLogErrorKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	err := fmt.Errorf("atlas %d%% full: %w", 100, ErrAtlasCapacity)
	LogError("%s", err)

	out := buf.String()
	if !strings.Contains(out, "atlas 100% full") {
		t.Fatalf("message not written verbatim: %q", out)
	}
	if strings.Contains(out, "%!") {
		t.Fatalf("message was treated as a format string: %q", out)
	}
}

func TestIdentifierPool(t *testing.T) {
	p := NewIdentifierPool(4)
	a := p.Acquire("a")
	b := p.Acquire("b")
	if a == 0 || b == 0 || a == b {
		t.Fatalf("unexpected ids a=%d b=%d", a, b)
	}
	if p.Live() != 2 {
		t.Fatalf("Live() = %d, want 2", p.Live())
	}
	if err := p.Release(a); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := p.Release(a); err == nil {
		t.Errorf("double release should fail")
	}
	c := p.Acquire("c")
	if c != a {
		t.Errorf("released slot not reused: got %d want %d", c, a)
	}
	if p.Owner(c) != "c" {
		t.Errorf("Owner(%d) = %v", c, p.Owner(c))
	}
	if err := p.Release(0); err == nil {
		t.Errorf("releasing id 0 should fail")
	}
}

func TestBakeMetricsAverage(t *testing.T) {
	m := NewBakeMetrics()
	if m.AverageMS() != 0 {
		t.Fatalf("empty average should be 0")
	}
	m.RecordCapture(0.002)
	m.RecordCapture(0.004)
	if m.Captures != 2 {
		t.Fatalf("Captures = %d", m.Captures)
	}
	if avg := m.AverageMS(); avg < 2.999 || avg > 3.001 {
		t.Errorf("AverageMS() = %f, want 3", avg)
	}

	for i := 0; i < AVG_COUNT; i++ {
		m.RecordCapture(0.001)
	}
	if avg := m.AverageMS(); avg < 0.999 || avg > 1.001 {
		t.Errorf("window should only hold the last %d samples, avg = %f", AVG_COUNT, avg)
	}
}

func TestClock(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("stopped clock advanced")
	}
	c.Start()
	now = base.Add(1500 * time.Millisecond)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Errorf("Elapsed() = %f, want 1.5", c.Elapsed())
	}
	c.Stop()
	now = base.Add(5 * time.Second)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Errorf("Elapsed() after Stop = %f, want 1.5", c.Elapsed())
	}
}

type testListener struct {
	name     string
	received int
	handles  bool
}

func (l *testListener) onEvent(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool {
	l.received++
	return l.handles
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	first := &testListener{name: "first", handles: true}
	second := &testListener{name: "second"}

	if !bus.Register(EVENT_CODE_RESIZED, first, first.onEvent) {
		t.Fatal("first registration failed")
	}
	if bus.Register(EVENT_CODE_RESIZED, first, first.onEvent) {
		t.Fatal("duplicate listener must be rejected")
	}
	if !bus.Register(EVENT_CODE_RESIZED, second, second.onEvent) {
		t.Fatal("second registration failed")
	}

	if !bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{U32: [4]uint32{640, 480}}) {
		t.Fatal("expected the event to be handled")
	}
	if first.received != 1 || second.received != 0 {
		t.Fatalf("handled events must stop propagation: %d/%d", first.received, second.received)
	}

	if !bus.Unregister(EVENT_CODE_RESIZED, first) {
		t.Fatal("expected first to be unregistered")
	}
	if bus.Unregister(EVENT_CODE_RESIZED, first) {
		t.Fatal("unregistering twice must fail")
	}
	if bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}) {
		t.Fatal("second does not handle the event")
	}
	if second.received != 1 {
		t.Fatalf("expected second to receive one event, got %d", second.received)
	}

	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Fatal("no listener for quit")
	}
	bus.Shutdown()
	if bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}) || second.received != 1 {
		t.Fatal("shutdown must drop registrations")
	}
}
