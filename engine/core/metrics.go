package core

import "github.com/spaghettifunk/lumen/engine/containers"

const AVG_COUNT int = 30

// BakeMetrics keeps a rolling average of probe capture times.
type BakeMetrics struct {
	window     *containers.RingQueue[float64]
	Captures   uint64
	FullCycles uint64
	LastMS     float64
}

func NewBakeMetrics() *BakeMetrics {
	return &BakeMetrics{
		window: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// RecordCapture stores the duration, in seconds, of one probe capture.
func (m *BakeMetrics) RecordCapture(elapsed float64) {
	ms := elapsed * 1000.0
	m.window.Push(ms)
	m.LastMS = ms
	m.Captures++
}

// RecordCycle marks that every probe of the lattice has been baked once more.
func (m *BakeMetrics) RecordCycle() {
	m.FullCycles++
}

// AverageMS is the mean capture time over the last AVG_COUNT captures.
func (m *BakeMetrics) AverageMS() float64 {
	if m.window.IsEmpty() {
		return 0
	}
	sum := 0.0
	m.window.Each(func(v float64) { sum += v })
	return sum / float64(m.window.Len())
}
