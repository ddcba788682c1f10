package kernel

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deadlines(deltas []int64) []int64 {
	out := make([]int64, len(deltas))
	var sum int64
	for i, d := range deltas {
		sum += d
		out[i] = sum
	}
	return out
}

func TestAddTimerNonPositiveRunsSynchronously(t *testing.T) {
	k := newTestKernel(t, nil)
	calls := 0
	k.AddTimer(0, func() { calls++ })
	assert.Equal(t, 1, calls)
	k.AddTimer(-5, func() { calls++ })
	assert.Equal(t, 2, calls)
	assert.Empty(t, k.PendingTimers())

	k.AddTimer(3, nil)
	assert.Empty(t, k.PendingTimers())
}

func TestAddTimerKeepsDeltaEncoding(t *testing.T) {
	k := newTestKernel(t, nil)
	for _, d := range []int64{5, 3, 8, 3, 1} {
		k.AddTimer(d, func() {})
	}
	assert.Equal(t, []int64{1, 2, 0, 2, 3}, k.PendingTimers())
	assert.Equal(t, []int64{1, 3, 3, 5, 8}, deadlines(k.PendingTimers()))
}

func TestTimersFireOnceAtDeadline(t *testing.T) {
	k := newTestKernel(t, nil)
	var fired []string
	var at []uint64
	add := func(name string, d int64) {
		k.AddTimer(d, func() {
			fired = append(fired, name)
			at = append(at, k.Jiffies())
		})
	}
	add("a", 3)
	add("b", 2)
	add("c", 3)

	k.Tick(ModeKernel)
	assert.Empty(t, fired)
	k.Tick(ModeKernel)
	assert.Equal(t, []string{"b"}, fired)
	k.Tick(ModeKernel)
	assert.Equal(t, []string{"b", "a", "c"}, fired)
	assert.Equal(t, []uint64{2, 3, 3}, at)

	for i := 0; i < 5; i++ {
		k.Tick(ModeKernel)
	}
	assert.Len(t, fired, 3)
	assert.Empty(t, k.PendingTimers())
}

func TestTimerCallbackMayRearm(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.TimeRequests = 1 })
	fires := 0
	var tick func()
	tick = func() {
		fires++
		k.AddTimer(2, tick)
	}
	k.AddTimer(2, tick)

	for i := 0; i < 10; i++ {
		k.Tick(ModeKernel)
	}
	assert.Equal(t, 5, fires)
	assert.Equal(t, []int64{2}, k.PendingTimers())
}

func TestTimerPoolExhaustionIsFatal(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.TimeRequests = 2 })
	k.AddTimer(1, func() {})
	k.AddTimer(2, func() {})

	f := requireFault(t, func() { k.AddTimer(3, func() {}) })
	assert.Contains(t, f.Info.Value, "no more time requests")
}

func TestTimerOrderingProperty(t *testing.T) {
	k := newTestKernel(t, nil)
	rng := rand.New(rand.NewSource(11))

	type fire struct {
		id int
		at uint64
	}
	type want struct {
		id       int
		deadline uint64
	}
	var fired []fire
	var wants []want
	for id := 0; id < 40; id++ {
		id := id
		d := int64(rng.Intn(20) + 1)
		wants = append(wants, want{id: id, deadline: uint64(d)})
		k.AddTimer(d, func() { fired = append(fired, fire{id: id, at: k.Jiffies()}) })

		ds := deadlines(k.PendingTimers())
		require.True(t, sort.SliceIsSorted(ds, func(i, j int) bool { return ds[i] < ds[j] }), "after %d: %v", id, ds)
		for _, delta := range k.PendingTimers()[1:] {
			require.GreaterOrEqual(t, delta, int64(0))
		}
	}

	sort.SliceStable(wants, func(i, j int) bool { return wants[i].deadline < wants[j].deadline })
	for i := 0; i < 21; i++ {
		k.Tick(ModeKernel)
	}
	require.Len(t, fired, len(wants))
	for i, w := range wants {
		assert.Equal(t, w.id, fired[i].id)
		assert.Equal(t, w.deadline, fired[i].at)
	}
}
