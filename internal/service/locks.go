package service

import "sync"

// TaskLocks hands out one mutex per task id. Entries are dropped once nobody
// holds or waits for them.
type TaskLocks struct {
	mu    sync.Mutex
	locks map[uint]*taskLock
}

type taskLock struct {
	mu   sync.Mutex
	refs int
}

func NewTaskLocks() *TaskLocks {
	return &TaskLocks{locks: make(map[uint]*taskLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *TaskLocks) Lock(id uint) (unlock func()) {
	l.mu.Lock()
	tl, ok := l.locks[id]
	if !ok {
		tl = &taskLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *TaskLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
