package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last duration of each named frame stage plus a few
// counters, and prints them in first-seen order.
type Profiler struct {
	Scopes map[string]time.Duration
	Counts map[string]int
	Order  []string

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes: make(map[string]time.Duration),
		Counts: make(map[string]int),
		now:    time.Now,
	}
}

// Measure starts timing name; call the returned func to stop.
func (p *Profiler) Measure(name string) func() {
	if _, ok := p.Scopes[name]; !ok {
		p.Order = append(p.Order, name)
		p.Scopes[name] = 0
	}
	start := p.now()
	return func() {
		p.Scopes[name] = p.now().Sub(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) String() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", name, ms)
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString("Stats:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}
