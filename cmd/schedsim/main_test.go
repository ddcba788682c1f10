package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minikern/internal/config"
	"minikern/kernel"
)

func TestSimulateIsDeterministic(t *testing.T) {
	run := func() string {
		m, err := simulate(config.Default(), 300, io.Discard)
		require.NoError(t, err)
		var b strings.Builder
		require.NoError(t, m.Kernel().ShowStat(&b))
		return b.String()
	}
	first := run()
	assert.Equal(t, first, run())
	assert.Contains(t, first, "0: pid=0, state=")
}

func TestSimulateLegacyPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.WakePolicy = "legacy"
	m, err := simulate(cfg, 300, io.Discard)
	require.NoError(t, err)
	st := m.Snapshot()
	assert.Equal(t, kernel.WakeLegacy, st.Policy)
	assert.Equal(t, uint64(300), st.Jiffies)
}

func TestRender(t *testing.T) {
	m, err := simulate(config.Default(), 200, io.Discard)
	require.NoError(t, err)
	out := render(m.Snapshot())

	assert.Contains(t, out, "jiffies 200")
	for _, col := range columns {
		assert.Contains(t, out, col)
	}
	for _, name := range []string{"idle", "init", "hog", "tty", "cron"} {
		assert.Contains(t, out, name)
	}
}

func TestRow(t *testing.T) {
	pi := kernel.ProcInfo{
		Slot: 3, PID: 12, PPID: 1, Name: "tty",
		State:  kernel.StateInterruptible,
		Signal: kernel.MakeSigSet(kernel.SIGCHLD, kernel.SIGALRM),
		Utime:  4,
	}
	assert.Equal(t,
		[]string{"3", "12", "1", "tty", "interruptible", "0", "0", "4", "0", "ALRM,CHLD"},
		row(pi))
}

func TestSimulateRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.WakePolicy = "lifo"
	_, err := simulate(cfg, 1, io.Discard)
	assert.Error(t, err)
}
