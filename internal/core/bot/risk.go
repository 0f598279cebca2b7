package bot

import (
	"math"
	"sync"
)

// DefaultRiskWindow is the number of ticks RiskHistory remembers.
const DefaultRiskWindow = 64

// RiskHistory is a fixed-size ring of the chosen direction's time to
// collision per evaluated tick. Safe for concurrent use.
type RiskHistory struct {
	mu   sync.RWMutex
	buf  []float64
	next int
	full bool
}

func NewRiskHistory(size int) *RiskHistory {
	if size <= 0 {
		size = DefaultRiskWindow
	}
	return &RiskHistory{buf: make([]float64, size)}
}

func (r *RiskHistory) Push(t float64) {
	r.mu.Lock()
	r.buf[r.next] = t
	r.next++
	if r.next == len(r.buf) {
		r.next, r.full = 0, true
	}
	r.mu.Unlock()
}

func (r *RiskHistory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Values returns the remembered times, oldest first.
func (r *RiskHistory) Values() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full {
		return append([]float64(nil), r.buf[:r.next]...)
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Min returns the tightest remembered time, +Inf when empty.
func (r *RiskHistory) Min() float64 {
	out := math.Inf(1)
	for _, v := range r.Values() {
		out = math.Min(out, v)
	}
	return out
}
