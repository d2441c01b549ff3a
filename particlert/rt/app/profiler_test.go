package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_MeasureAndString(t *testing.T) {
	p := NewProfiler()
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	stop := p.Measure("Sort")
	clock = clock.Add(1500 * time.Microsecond)
	stop()

	stop = p.Measure("Upload")
	clock = clock.Add(250 * time.Microsecond)
	stop()

	// Re-measuring keeps the first-seen order.
	stop = p.Measure("Sort")
	clock = clock.Add(2 * time.Millisecond)
	stop()

	p.SetCount("Particles", 4096)
	p.SetCount("Buckets", 2)

	assert.Equal(t, []string{"Sort", "Upload"}, p.Order)
	assert.Equal(t, 2*time.Millisecond, p.Scopes["Sort"])
	assert.Equal(t,
		"Timings (CPU):\n"+
			"  Sort           : 2.00 ms\n"+
			"  Upload         : 0.25 ms\n"+
			"Stats:\n"+
			"  Buckets        : 2\n"+
			"  Particles      : 4096\n",
		p.String())
}
