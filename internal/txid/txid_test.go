package txid

import "testing"

func TestTotalOrder(t *testing.T) {
	cases := []ID{
		{0, 0, 1}, {0, 1, 0}, {1, 0, 0}, {1, 1, 1}, {5, 3, 9},
	}
	for i := range cases {
		for j := range cases {
			if i == j {
				continue
			}
			a, b := cases[i], cases[j]
			if a.Less(b) == b.Less(a) {
				t.Fatalf("exactly one of a<b, b<a must hold for %+v, %+v", a, b)
			}
		}
	}
}

func TestSentinels(t *testing.T) {
	mid := ID{1, 2, 3}
	if !Min.Less(mid) || !mid.Less(Max) {
		t.Errorf("Min <= t <= Max must hold for %+v", mid)
	}
	if Min.Valid() {
		t.Errorf("Min must not be valid")
	}
	if Max.Valid() {
		t.Errorf("Max must not be valid")
	}
	if !mid.Valid() {
		t.Errorf("an ordinary id must be valid")
	}
}

func TestIncrementIsGreater(t *testing.T) {
	ids := []ID{{0, 0, 0}, {0, 0, ^uint64(0)}, {0, ^uint64(0), ^uint64(0)}, {5, 9, 100}}
	for _, id := range ids {
		next := id.Increment()
		if !id.Less(next) {
			t.Errorf("Increment(%+v) = %+v, want strictly greater", id, next)
		}
	}
}

func TestIncrementOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on A overflow")
		}
	}()
	Max.Increment()
}

func TestClockTickMonotonic(t *testing.T) {
	c := NewClock(7)
	prev := c.Tock()
	for i := 0; i < 5; i++ {
		next := c.Tick()
		if !prev.Less(next) {
			t.Fatalf("Tick did not advance: %+v -> %+v", prev, next)
		}
		prev = next
	}
}

func TestClockLeapAdvancesPastReceived(t *testing.T) {
	c := NewClock(1)
	received := ID{A: 100, B: 2, C: 50}
	c.Leap(received)
	if c.Tock().Less(received) {
		t.Fatalf("Leap must land at an id >= received, got %+v for received %+v", c.Tock(), received)
	}
	next := c.Tick()
	if !received.Less(next) {
		t.Errorf("after Leap+Tick, %+v should exceed received %+v", next, received)
	}
}

func TestClockLeapNoOpWhenAlreadyAhead(t *testing.T) {
	c := NewClock(1)
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	ahead := c.Tock()
	c.Leap(ID{A: 0, B: 0, C: 0})
	if c.Tock() != ahead {
		t.Errorf("Leap should not move the clock backwards")
	}
}
