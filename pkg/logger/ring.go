package logx

import (
	"strings"
	"sync"
)

const defaultRingSize = 200

// Ring is an io.Writer that keeps the most recent log lines in memory so the
// dashboard can show them without touching files.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewRing(max int) *Ring {
	if max <= 0 {
		max = defaultRingSize
	}
	return &Ring{max: max}
}

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines = append(r.lines, line)
	}
	if overflow := len(r.lines) - r.max; overflow > 0 {
		r.lines = append([]string(nil), r.lines[overflow:]...)
	}
	return len(p), nil
}

// Tail returns up to n of the most recent lines, oldest first.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}
