package command

import (
	"fmt"
	"strings"
	"sync"
)

// LockStrategy selects how concurrent mutations of one account are ordered.
type LockStrategy string

const (
	// LockNone reads the balance inside the write transaction without a
	// lock. Two concurrent mutations of one account can lose an update.
	LockNone LockStrategy = "none"
	// LockMutex serialises mutations of an account inside this process.
	LockMutex LockStrategy = "mutex"
	// LockRow takes a row lock with SELECT ... FOR UPDATE.
	LockRow LockStrategy = "row"
)

func ParseLockStrategy(s string) (LockStrategy, error) {
	switch LockStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LockNone:
		return LockNone, nil
	case LockMutex:
		return LockMutex, nil
	case LockRow:
		return LockRow, nil
	}
	return "", fmt.Errorf("unknown locking strategy %q", s)
}

// accountLocks hands out one mutex per account id and forgets it once no
// caller holds or waits for it.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*accountLock)}
}

func (l *accountLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &accountLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
