package review

import "sync"

// caseLocks hands out one mutex per case id. Entries are removed once no
// goroutine holds or waits for them.
type caseLocks struct {
	mu    sync.Mutex
	locks map[string]*caseLock
}

type caseLock struct {
	mu   sync.Mutex
	refs int
}

func newCaseLocks() *caseLocks {
	return &caseLocks{locks: make(map[string]*caseLock)}
}

// lock acquires the mutex for caseID and returns its release function.
func (c *caseLocks) lock(caseID string) func() {
	c.mu.Lock()
	l, ok := c.locks[caseID]
	if !ok {
		l = &caseLock{}
		c.locks[caseID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, caseID)
		}
		c.mu.Unlock()
	}
}
