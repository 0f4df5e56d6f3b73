// Package admission implements the per-host/global concurrency limiter and
// the three-level priority queue that gates requests into the connection
// multiplexer.
//
// Grounded on dgrr-http2's single-mutex-guarded compound-state style (its
// Conn protects nextID/streams/windows behind one lock rather than several
// independent ones) generalized here to one Queue mutex that serializes
// both the priority levels and the limiter's counters, matching the base
// spec's "invariant-critical compound updates wrapped in a single critical
// section" guidance.
package admission

import (
	"errors"
	"sync"
)

// ErrMaxExceeded is returned by TryAcquire when the caller only wants a
// non-blocking attempt and no permit is currently available.
var ErrMaxExceeded = errors.New("admission: concurrency limit reached")

// limiter tracks global and per-host in-flight counts. Its methods assume
// the caller already holds the owning Queue's mutex; it has no lock of its
// own; nesting a second mutex here would only add an ordering hazard for no
// benefit, since every call site already serializes through Queue.mu.
type limiter struct {
	globalMax int
	globalCur int
	hostMax   int
	hostCur   map[string]int
}

func newLimiter(globalMax, hostMax int) *limiter {
	return &limiter{globalMax: globalMax, hostMax: hostMax, hostCur: make(map[string]int)}
}

func (l *limiter) tryAcquire(host string) bool {
	if l.globalCur >= l.globalMax {
		return false
	}
	if l.hostMax > 0 && l.hostCur[host] >= l.hostMax {
		return false
	}
	l.globalCur++
	l.hostCur[host]++
	return true
}

func (l *limiter) release(host string) {
	l.globalCur--
	l.hostCur[host]--
	if l.hostCur[host] <= 0 {
		delete(l.hostCur, host)
	}
}

// Permit represents one admitted request's hold on the concurrency limit.
// Release is idempotent and safe to call from a deferred cancellation path;
// a second call is a no-op so a cancelled request can never release the
// same permit twice.
type Permit struct {
	q    *Queue
	host string
	once sync.Once
}

// Release returns the permit to the limiter, potentially unblocking queued
// waiters for host or for the global cap.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.q.releasePermit(p.host)
	})
}
