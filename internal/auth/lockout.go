package auth

import (
	"sync"
	"time"
)

const (
	defaultLoginMaxFailures   = 5
	defaultLoginLockoutWindow = 15 * time.Minute
)

// Lockout throttles password guessing. Failed attempts per identifier are
// counted inside a sliding window; reaching the threshold locks the
// identifier out until the lock duration elapses. A successful login
// clears the history.
type Lockout struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	lockFor     time.Duration
	records     map[string]*lockoutRecord
	now         func() time.Time
}

type lockoutRecord struct {
	failures    int
	firstAt     time.Time
	lockedUntil time.Time
}

func NewLockout(maxFailures int, window, lockFor time.Duration) *Lockout {
	if maxFailures <= 0 {
		maxFailures = defaultLoginMaxFailures
	}
	if window <= 0 {
		window = defaultLoginLockoutWindow
	}
	if lockFor <= 0 {
		lockFor = window
	}
	return &Lockout{
		maxFailures: maxFailures,
		window:      window,
		lockFor:     lockFor,
		records:     make(map[string]*lockoutRecord),
		now:         time.Now,
	}
}

// Locked reports whether the identifier is locked out and, if so, when the
// lock expires.
func (l *Lockout) Locked(identifier string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[identifier]
	if !ok {
		return false, time.Time{}
	}
	if l.now().Before(r.lockedUntil) {
		return true, r.lockedUntil
	}
	return false, time.Time{}
}

// RecordFailure counts a failed attempt. A fresh window starts when the
// previous one has elapsed; hitting the threshold applies the lock.
func (l *Lockout) RecordFailure(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	r, ok := l.records[identifier]
	if !ok || now.Sub(r.firstAt) > l.window {
		r = &lockoutRecord{firstAt: now}
		l.records[identifier] = r
	}
	r.failures++
	if r.failures >= l.maxFailures {
		r.lockedUntil = now.Add(l.lockFor)
	}
}

// Clear drops the failure history for an identifier.
func (l *Lockout) Clear(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, identifier)
}
