package core

import "time"

// Lock is a mutual-exclusion lock whose acquisition can give up after a
// bounded wait. The zero value is not usable; call NewLock.
type Lock struct {
	ch chan struct{}
}

func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

// Lock blocks until the lock is held.
func (l *Lock) Lock() { l.ch <- struct{}{} }

// TryLockFor waits at most d for the lock and reports whether it was
// acquired. A non-positive d only tries once.
func (l *Lock) TryLockFor(d time.Duration) bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
	}
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case l.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (l *Lock) Unlock() {
	select {
	case <-l.ch:
	default:
		panic("core: unlock of unlocked Lock")
	}
}
