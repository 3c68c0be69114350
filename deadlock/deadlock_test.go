package deadlock

import "testing"

func TestAcquireReleaseRoundTrip(t *testing.T) {
	m := NewMatrices()
	r := m.AddResourceType(1)
	m.AddThread(1)

	if m.RequestWouldDeadlock(1, r) {
		t.Fatalf("single thread acquiring a free resource should be safe")
	}
	m.CancelRequest(1, r)
	m.Acquire(1, r)
	m.Release(1, r)

	if m.available[r] != 1 {
		t.Fatalf("after Acquire/Release, available = %d, want 1", m.available[r])
	}
}

func TestClassicCircularWaitIsUnsafe(t *testing.T) {
	// Two threads, two single-instance resources: thread 1 holds R1 and
	// wants R2; thread 2 holds R2 and already wants R1 (left pending,
	// not canceled, to model it as genuinely blocked). Granting thread
	// 1's request on top of that must report unsafe: neither thread can
	// ever finish.
	m := NewMatrices()
	r1 := m.AddResourceType(1)
	r2 := m.AddResourceType(1)
	m.AddThread(1)
	m.AddThread(2)

	m.Acquire(1, r1)
	m.Acquire(2, r2)

	// Thread 2 is already blocked wanting R1; leave its need in place.
	m.RequestWouldDeadlock(2, r1)

	if !m.RequestWouldDeadlock(1, r2) {
		t.Fatalf("thread 1 requesting R2 while thread 2 holds it and is blocked wanting R1 should be unsafe")
	}
	m.CancelRequest(1, r2)
	m.CancelRequest(2, r1)
}

func TestSafeOrderingIsAccepted(t *testing.T) {
	// Thread 1 holds R1 (2 instances available of 2) and wants one more;
	// there is exactly one instance left, so granting it is safe.
	m := NewMatrices()
	r := m.AddResourceType(2)
	m.AddThread(1)
	m.AddThread(2)

	m.Acquire(1, r)
	if m.RequestWouldDeadlock(1, r) {
		t.Fatalf("requesting the last free instance with no other thread blocked on it should be safe")
	}
	m.CancelRequest(1, r)
}

func TestRemoveThreadReleasesHeldResources(t *testing.T) {
	m := NewMatrices()
	r := m.AddResourceType(1)
	m.AddThread(1)
	m.Acquire(1, r)

	m.RemoveThread(1)
	if m.available[r] != 1 {
		t.Fatalf("after RemoveThread, available = %d, want 1 (released)", m.available[r])
	}
	if len(m.tids) != 0 {
		t.Fatalf("after RemoveThread, %d rows remain, want 0", len(m.tids))
	}
}
