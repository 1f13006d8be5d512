// Package core
package core

// Window is a bounded FIFO of throughput samples with an incrementally
// maintained sum, so recording and averaging are O(1). It carries no lock;
// the Monitor serializes all access.
type Window struct {
	samples []float64
	head    int
	size    int
	total   float64
}

func NewWindow(max int) *Window {
	if max < 1 {
		max = 1
	}
	return &Window{samples: make([]float64, max)}
}

// Record appends a sample, evicting the oldest one once the window is full.
func (w *Window) Record(sample float64) {
	if w.size == len(w.samples) {
		w.total -= w.samples[w.head]
		w.samples[w.head] = sample
		w.head = (w.head + 1) % len(w.samples)
		w.total += sample
		return
	}

	w.samples[(w.head+w.size)%len(w.samples)] = sample
	w.size++
	w.total += sample
}

// Average returns the mean of the current contents, or 0 while empty.
func (w *Window) Average() float64 {
	if w.size == 0 {
		return 0
	}
	return w.total / float64(w.size)
}

func (w *Window) Len() int {
	return w.size
}

func (w *Window) Cap() int {
	return len(w.samples)
}
