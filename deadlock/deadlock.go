// Package deadlock implements the banker's-algorithm safety check over
// per-process resource matrices: available instances per resource type,
// and per-thread allocation/need/maximum rows.
package deadlock

import "sync"

/// Matrices holds one process's resource-allocation state: available
/// instances per resource type, and per-thread allocation/need/maximum
/// rows, indexed in parallel by thread row and resource column.
type Matrices struct {
	mu sync.Mutex

	available []int
	maximum   []int

	tids       []int // row -> tid
	allocation [][]int
	need       [][]int
}

/// NewMatrices builds an empty resource-matrix set with zero resource
/// types and zero threads.
func NewMatrices() *Matrices {
	return &Matrices{}
}

/// AddResourceType registers a new resource with count initial instances,
/// setting available[new] = maximum[new] = count. Called when a mutex
/// or semaphore is created. It returns the new resource's column index.
func (m *Matrices) AddResourceType(count int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := len(m.available)
	m.available = append(m.available, count)
	m.maximum = append(m.maximum, count)
	for i := range m.allocation {
		m.allocation[i] = append(m.allocation[i], 0)
		m.need[i] = append(m.need[i], 0)
	}
	return r
}

/// AddThread appends a zero row to allocation and need for tid.
func (m *Matrices) AddThread(tid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tids = append(m.tids, tid)
	m.allocation = append(m.allocation, make([]int, len(m.available)))
	m.need = append(m.need, make([]int, len(m.available)))
}

/// RemoveThread drops tid's row entirely, releasing anything it still
/// held back to available first. Called when a task exits.
func (m *Matrices) RemoveThread(tid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rowOf(tid)
	if i < 0 {
		return
	}
	for r := range m.available {
		m.available[r] += m.allocation[i][r]
	}
	m.tids = append(m.tids[:i], m.tids[i+1:]...)
	m.allocation = append(m.allocation[:i], m.allocation[i+1:]...)
	m.need = append(m.need[:i], m.need[i+1:]...)
}

func (m *Matrices) rowOf(tid int) int {
	for i, t := range m.tids {
		if t == tid {
			return i
		}
	}
	return -1
}

/// RequestWouldDeadlock records a request from tid for one instance of
/// resource r (need[tid][r] += 1) and runs the banker's safety check over
/// the resulting state, reporting whether it is unsafe. The check
/// succeeds iff there exists an ordering of threads in which every
/// thread's remaining need can be satisfied from available augmented by
/// the resources already held by threads earlier in the order. It does
/// not mutate allocation/available; on a safe outcome the caller
/// proceeds to actually acquire via Acquire, on an unsafe outcome the
/// caller rolls the need increment back via CancelRequest if it intends
/// to fall back to blocking instead of returning -0xDEAD.
func (m *Matrices) RequestWouldDeadlock(tid, r int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rowOf(tid)
	if i < 0 {
		return false
	}
	m.need[i][r]++
	safe := m.isSafe()
	return !safe
}

/// CancelRequest undoes the need increment RequestWouldDeadlock made,
/// used when the caller falls back to blocking instead of acquiring.
func (m *Matrices) CancelRequest(tid, r int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rowOf(tid)
	if i < 0 {
		return
	}
	if m.need[i][r] > 0 {
		m.need[i][r]--
	}
}

/// Acquire transfers one instance of resource r from available to
/// tid's allocation row and clears the corresponding need, called on
/// successful acquisition.
func (m *Matrices) Acquire(tid, r int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rowOf(tid)
	if i < 0 {
		return
	}
	m.available[r]--
	m.allocation[i][r]++
	m.need[i][r] = 0
}

/// Release transfers one instance of resource r from tid's allocation
/// row back to available, the reverse of Acquire.
func (m *Matrices) Release(tid, r int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.rowOf(tid)
	if i < 0 {
		return
	}
	if m.allocation[i][r] > 0 {
		m.allocation[i][r]--
		m.available[r]++
	}
}

// isSafe runs the banker's algorithm over the current available/
// allocation/need matrices, O(T²·R). It runs only when detection is
// enabled. Callers hold m.mu.
func (m *Matrices) isSafe() bool {
	n := len(m.tids)
	r := len(m.available)
	work := make([]int, r)
	copy(work, m.available)
	finish := make([]bool, n)

	done := 0
	for done < n {
		progressed := false
		for i := 0; i < n; i++ {
			if finish[i] {
				continue
			}
			ok := true
			for j := 0; j < r; j++ {
				if m.need[i][j] > work[j] {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			for j := 0; j < r; j++ {
				work[j] += m.allocation[i][j]
			}
			finish[i] = true
			done++
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return done == n
}
