package monitor

import (
	"sync"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
)

// DefaultHistorySize is the default number of data points to retain per metric.
const DefaultHistorySize = 60

// History keeps CPU and memory percentages per device in ring buffers.
// It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	devices map[string]*deviceHistory
}

type deviceHistory struct {
	cpu    *ringBuffer
	memory *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history tracker with the given buffer size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		devices: make(map[string]*deviceHistory),
	}
}

// Push records a snapshot. Offline snapshots and percentages that read N/A
// are skipped, so a gap shows as a shorter sparkline rather than a zero.
func (h *History) Push(name string, snap telemetry.Snapshot) {
	if !snap.Status.Online {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.getOrCreate(name)
	if snap.CPU != nil {
		if v, ok := telemetry.ParsePercent(snap.CPU.UsedPercent); ok {
			hist.cpu.push(v)
		}
	}
	if snap.Memory != nil {
		if v, ok := telemetry.ParsePercent(snap.Memory.UsedPercent); ok {
			hist.memory.push(v)
		}
	}
}

// CPU returns up to count CPU percentages for a device, oldest first.
func (h *History) CPU(name string, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[name]
	if !ok {
		return nil
	}
	return hist.cpu.getLast(count)
}

// Memory returns up to count memory percentages for a device, oldest first.
func (h *History) Memory(name string, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[name]
	if !ok {
		return nil
	}
	return hist.memory.getLast(count)
}

// Latest returns the newest CPU and memory percentages, with ok false for
// a metric that has no samples yet.
func (h *History) Latest(name string) (cpu float64, cpuOK bool, mem float64, memOK bool) {
	if v := h.CPU(name, 1); len(v) == 1 {
		cpu, cpuOK = v[0], true
	}
	if v := h.Memory(name, 1); len(v) == 1 {
		mem, memOK = v[0], true
	}
	return
}

// Count returns the number of CPU samples stored for a device.
func (h *History) Count(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[name]
	if !ok {
		return 0
	}
	return hist.cpu.count
}

// Clear removes all history for a device.
func (h *History) Clear(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.devices, name)
}

// Must be called with h.mu held.
func (h *History) getOrCreate(name string) *deviceHistory {
	hist, ok := h.devices[name]
	if !ok {
		hist = &deviceHistory{
			cpu:    newRingBuffer(h.size),
			memory: newRingBuffer(h.size),
		}
		h.devices[name] = hist
	}
	return hist
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)
	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
