package sched

import "testing"

func TestTickWakesOnlyExpiredSleepersInDeadlineOrder(t *testing.T) {
	idle := newTask(t, 0)
	sc := NewScheduler(&noopSwitcher{}, idle)
	a, b, c := newTask(t, 1), newTask(t, 2), newTask(t, 3)
	for _, tk := range []*Task_t{a, b, c} {
		tk.Status = Blocked
	}

	tm := NewTimers(sc)
	tm.SleepUntil(a, 300)
	tm.SleepUntil(b, 100)
	tm.SleepUntil(c, 500)

	if tm.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", tm.Pending())
	}

	tm.Tick(200) // only b's deadline (100) has passed
	if b.Status != Ready {
		t.Fatalf("b.Status after Tick(200) = %v, want Ready", b.Status)
	}
	if a.Status != Blocked || c.Status != Blocked {
		t.Fatalf("a/c should remain Blocked after Tick(200), got a=%v c=%v", a.Status, c.Status)
	}
	if tm.Pending() != 2 {
		t.Fatalf("Pending() after one wakeup = %d, want 2", tm.Pending())
	}

	tm.Tick(1000) // both remaining deadlines have passed
	if a.Status != Ready || c.Status != Ready {
		t.Fatalf("a/c after Tick(1000) = %v/%v, want both Ready", a.Status, c.Status)
	}
	if tm.Pending() != 0 {
		t.Fatalf("Pending() after all wakeups = %d, want 0", tm.Pending())
	}
}

func TestTickWithNoExpiredSleepersWakesNobody(t *testing.T) {
	idle := newTask(t, 0)
	sc := NewScheduler(&noopSwitcher{}, idle)
	a := newTask(t, 1)
	a.Status = Blocked

	tm := NewTimers(sc)
	tm.SleepUntil(a, 1_000_000)
	tm.Tick(1)

	if a.Status != Blocked {
		t.Fatalf("a.Status after an early Tick = %v, want Blocked", a.Status)
	}
	if tm.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 (still registered)", tm.Pending())
	}
}
