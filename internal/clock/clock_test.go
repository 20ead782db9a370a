package clock

import (
	"testing"
	"time"
)

func TestFakeNowPinnedAtStart(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	fake := NewFake(start)

	if !fake.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, fake.Now())
	}

	fake.Advance(42 * time.Second)
	if !fake.Now().Equal(start.Add(42 * time.Second)) {
		t.Fatalf("expected advance by 42s, got %v", fake.Now())
	}
}

func TestAdvanceFiresDueTimersInDeadlineOrder(t *testing.T) {
	fake := NewFake(time.UnixMilli(0))

	var order []string
	fake.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	fake.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	fake.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	fake.Advance(25 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}

	fake.Advance(5 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("expected c fired at its deadline, got %v", order)
	}
}

func TestCallbackObservesItsDeadline(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	fake := NewFake(start)

	var observed time.Time
	fake.AfterFunc(100*time.Millisecond, func() { observed = fake.Now() })

	fake.Advance(1 * time.Second)
	if !observed.Equal(start.Add(100 * time.Millisecond)) {
		t.Fatalf("expected callback to observe its deadline, got %v", observed)
	}
	if !fake.Now().Equal(start.Add(1 * time.Second)) {
		t.Fatalf("expected clock at advance target, got %v", fake.Now())
	}
}

func TestStopPreventsFiring(t *testing.T) {
	fake := NewFake(time.UnixMilli(0))

	fired := false
	timer := fake.AfterFunc(10*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("expected Stop on a live timer to report true")
	}
	if timer.Stop() {
		t.Fatal("expected second Stop to report false")
	}

	fake.Advance(1 * time.Second)
	if fired {
		t.Fatal("expected stopped timer not to fire")
	}
}

func TestResetReschedulesFromNow(t *testing.T) {
	fake := NewFake(time.UnixMilli(0))

	count := 0
	timer := fake.AfterFunc(10*time.Millisecond, func() { count++ })

	fake.Advance(5 * time.Millisecond)
	timer.Reset(10 * time.Millisecond)

	fake.Advance(9 * time.Millisecond)
	if count != 0 {
		t.Fatal("expected reset to push the deadline out")
	}

	fake.Advance(1 * time.Millisecond)
	if count != 1 {
		t.Fatalf("expected exactly one fire, got %d", count)
	}
}

func TestResetRevivesFiredTimer(t *testing.T) {
	fake := NewFake(time.UnixMilli(0))

	count := 0
	timer := fake.AfterFunc(10*time.Millisecond, func() { count++ })

	fake.Advance(10 * time.Millisecond)
	if count != 1 {
		t.Fatalf("expected fire, got %d", count)
	}

	if timer.Reset(10 * time.Millisecond) {
		t.Fatal("expected Reset on a fired timer to report false")
	}
	fake.Advance(10 * time.Millisecond)
	if count != 2 {
		t.Fatalf("expected revived timer to fire, got %d", count)
	}
}

func TestCallbackMayScheduleAnotherTimer(t *testing.T) {
	fake := NewFake(time.UnixMilli(0))

	var order []string
	fake.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "first")
		fake.AfterFunc(10*time.Millisecond, func() { order = append(order, "second") })
	})

	fake.Advance(30 * time.Millisecond)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected chained fire within one advance, got %v", order)
	}
}

func TestSystemClockBasics(t *testing.T) {
	clk := System()

	before := time.Now()
	now := clk.Now()
	if now.Before(before.Add(-time.Second)) {
		t.Fatalf("system clock far behind wall clock: %v", now)
	}

	done := make(chan struct{})
	timer := clk.AfterFunc(1*time.Millisecond, func() { close(done) })
	defer timer.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("system AfterFunc never fired")
	}
}
