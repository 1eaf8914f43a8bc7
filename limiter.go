package portal

import (
	"sync"
	"time"
)

// LoginLimiter counts failed logins per client IP over a sliding window.
// Login checks it before verifying a password, records every failure and
// resets the IP after a success.
type LoginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginLimiter allows max failed logins per IP within window. A
// goroutine sweeps idle IPs once per window until Stop is called.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

// recent drops failures older than the window, reusing hits' backing array.
func (l *LoginLimiter) recent(hits []time.Time) []time.Time {
	cutoff := l.now().Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

func (l *LoginLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		for ip, hits := range l.failures {
			if kept := l.recent(hits); len(kept) > 0 {
				l.failures[ip] = kept
			} else {
				delete(l.failures, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Check reports whether ip may attempt another login.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(l.failures[ip])) < l.max
}

// Record counts one failed login for ip.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[ip] = append(l.recent(l.failures[ip]), l.now())
}

// Reset forgets the failures of ip, typically after it logged in.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, ip)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
