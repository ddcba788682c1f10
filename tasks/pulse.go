package tasks

import "minikern/kernel"

// StartPulse wakes every waiter of q each period ticks, forever. It uses a
// single timer request that re-arms itself from its own callback.
func StartPulse(k *kernel.Kernel, q *kernel.WaitQueue, period int64) {
	if period <= 0 {
		period = 1
	}
	var fire func()
	fire = func() {
		k.WakeAll(q)
		k.AddTimer(period, fire)
	}
	k.AddTimer(period, fire)
}
