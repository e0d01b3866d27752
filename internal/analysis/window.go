package analysis

import "gonum.org/v1/gonum/floats"

// rollingWindow is a fixed-size ring buffer over the most recent samples.
type rollingWindow struct {
	buf   []float64
	index int
	size  int
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{buf: make([]float64, 0, size), size: size}
}

func (w *rollingWindow) push(value float64) {
	if len(w.buf) < w.size {
		w.buf = append(w.buf, value)
	} else {
		w.buf[w.index] = value
	}
	w.index = (w.index + 1) % w.size
}

// full reports whether the window holds size samples.
func (w *rollingWindow) full() bool {
	return len(w.buf) == w.size
}

// mean is the trailing simple moving average. Only meaningful when full.
func (w *rollingWindow) mean() float64 {
	return floats.Sum(w.buf) / float64(len(w.buf))
}
